package gesture

// Classifier is the touch state machine. It is not safe for concurrent use:
// exactly one goroutine calls Poll and TakeGesture, in tick order.
type Classifier struct {
	cfg     Config
	sampler Sampler

	touching   bool
	touchStart Millis
	longFired  bool

	// awaiting is the RELEASED_PENDING sub-state: a candidate tap ended at
	// lastTap and the pairing window is still open.
	awaiting bool
	lastTap  Millis
	// pairing marks the current contact as the second half of a double tap.
	// It is decided when that contact starts inside the window, so the length
	// of the second contact never counts against the gap.
	pairing bool

	pending Kind
}

// New validates cfg and returns an idle classifier reading from s.
func New(cfg Config, s Sampler) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{cfg: cfg, sampler: s}, nil
}

// Config returns the tuning the classifier was built with.
func (c *Classifier) Config() Config { return c.cfg }

// Phase reports the current state machine phase.
func (c *Classifier) Phase() Phase {
	switch {
	case c.touching:
		return Touching
	case c.awaiting:
		return ReleasedPending
	default:
		return Idle
	}
}

// Pending returns the buffered gesture without consuming it.
func (c *Classifier) Pending() Kind { return c.pending }

// Poll samples the touch signal once and advances the state machine to now.
//
// While a decoded gesture is waiting in the buffer Poll does nothing, so a
// gesture is never overwritten. Timing is measured from stored timestamps, so
// a late drain only stretches the apparent durations.
func (c *Classifier) Poll(now Millis) {
	if c.pending != None {
		return
	}
	contact := c.cfg.contact(c.sampler.Sample())

	switch {
	case c.touching:
		c.pollTouching(now, contact)
	case c.awaiting:
		c.pollReleased(now, contact)
	case contact:
		c.beginTouch(now)
	}
}

// TakeGesture returns the decoded gesture and clears the buffer. It returns
// None when nothing was decoded since the previous call.
func (c *Classifier) TakeGesture() Kind {
	k := c.pending
	c.pending = None
	return k
}

func (c *Classifier) beginTouch(now Millis) {
	c.touching = true
	c.touchStart = now
	c.longFired = false
}

func (c *Classifier) pollTouching(now Millis, contact bool) {
	if contact {
		if !c.longFired && now.Since(c.touchStart) > c.cfg.LongPressDuration {
			c.longFired = true
			c.pairing = false
			c.pending = LongPress
		}
		return
	}

	c.touching = false
	pairing := c.pairing
	c.pairing = false
	if c.longFired || now.Since(c.touchStart) >= c.cfg.TapDuration {
		return
	}

	if pairing {
		c.pending = DoubleTap
		return
	}

	c.lastTap = now
	c.awaiting = true
}

func (c *Classifier) pollReleased(now Millis, contact bool) {
	elapsed := now.Since(c.lastTap)
	switch {
	case elapsed >= c.cfg.DoubleTapInterval:
		c.awaiting = false
		c.pending = SingleTap
	case contact && elapsed >= c.cfg.ConfirmDelay:
		c.awaiting = false
		c.beginTouch(now)
		c.pairing = true
	}
}
