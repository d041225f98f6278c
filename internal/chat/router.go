package chat

import (
	"termchat/internal/models"
)

type publishRequest struct {
	event   models.Event
	targets []*Session
}

// Router fans events out to every session joined to a room. The member
// set is resolved on the publisher's goroutine, so an event reaches
// exactly the sessions that were in the room when it was published; a
// session established afterwards never sees it. Delivery itself runs on
// one goroutine, so events for the same room reach members in publish
// order, and a slow client drops events rather than stalling the rest of
// the room.
type Router struct {
	members func(roomID string) []*Session

	publish chan publishRequest
	stop    chan struct{}
	done    chan struct{}
}

// NewRouter takes a member-lookup function rather than the session
// registry itself so the registry owner decides locking.
func NewRouter(members func(roomID string) []*Session) *Router {
	return &Router{
		members: members,
		publish: make(chan publishRequest, 256),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (r *Router) Start() {
	go func() {
		defer close(r.done)
		for {
			select {
			case <-r.stop:
				return
			case req := <-r.publish:
				r.deliver(req)
			}
		}
	}()
}

func (r *Router) Stop() {
	close(r.stop)
	<-r.done
}

// Publish queues an event for delivery to every current member of the
// room, skipping exclude if non-nil. Fire-and-forget: there is no
// acknowledgement and no retry.
func (r *Router) Publish(roomID string, event models.Event, exclude *Session) {
	var targets []*Session
	for _, session := range r.members(roomID) {
		if session != exclude {
			targets = append(targets, session)
		}
	}
	if len(targets) == 0 {
		return
	}

	select {
	case r.publish <- publishRequest{event: event, targets: targets}:
	case <-r.stop:
	}
}

func (r *Router) deliver(req publishRequest) {
	for _, session := range req.targets {
		session.conn.Send(req.event)
	}
}
