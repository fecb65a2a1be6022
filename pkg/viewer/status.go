package viewer

// Status is a snapshot of the session for display.
type Status struct {
	ImageID  string  `json:"imageId,omitempty"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	OCR      string  `json:"ocr"`
	Error    string  `json:"error,omitempty"`
	Words    int     `json:"words"`
	Gesture  string  `json:"gesture"`
	Cursor   string  `json:"cursor"`
	Selected int     `json:"selected"`
	Scale    float64 `json:"scale"`
	Keyword  string  `json:"keyword"`
	Frames   uint64  `json:"frames"`
}

// Status returns the current session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.cache.Snapshot()
	w, h := s.surface.Size()
	st := Status{
		ImageID:  s.imageID,
		Width:    w,
		Height:   h,
		OCR:      snap.State.String(),
		Words:    snap.Index.Len(),
		Gesture:  s.controller.State().String(),
		Cursor:   string(s.controller.Cursor()),
		Selected: len(s.controller.Selection()),
		Scale:    s.transform.Scale(),
		Keyword:  s.host.Text(),
		Frames:   s.scheduler.Frames(),
	}
	if snap.Err != nil {
		st.Error = snap.Err.Error()
	}
	return st
}
