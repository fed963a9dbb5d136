package realtime

// Subscription is a live binding between a topic and a handler. It is
// owned by exactly one view and released when that view unmounts or its
// scope changes.
type Subscription struct {
	ch    *Channel
	topic string
	id    int64
}

// Unsubscribe releases the binding. When the last handler for a topic
// is removed and the channel is still connected, an unsubscribe frame
// is sent so the server stops delivering the topic. Calling Unsubscribe
// more than once is harmless.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.ch == nil {
		return
	}
	c := s.ch

	c.mu.Lock()
	handlers, ok := c.subs[s.topic]
	if !ok {
		c.mu.Unlock()
		return
	}
	if _, ok := handlers[s.id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(handlers, s.id)
	last := len(handlers) == 0
	if last {
		delete(c.subs, s.topic)
	}
	connected := c.state == StateConnected && c.conn != nil
	c.mu.Unlock()

	if last && connected {
		if err := c.writeFrame(frame{Action: "unsubscribe", Topic: s.topic}); err != nil {
			c.log.Debug("sending unsubscribe frame", "topic", s.topic, "err", err)
		}
	}
}

// Topic returns the topic this subscription is bound to.
func (s *Subscription) Topic() string {
	return s.topic
}
