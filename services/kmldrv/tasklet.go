package kmldrv

import "time"

// gameTasklet is the softirq tier: hand the current turn's move to the
// ordered queue if the previous move has finished, then the load sample and
// a render. Never blocks.
func (s *Service) gameTasklet() {
	start := time.Now()
	log := s.log.With("tier", "softirq")

	if s.state.takePending() {
		mark := s.state.currentTurn()
		s.moveGen[mark.Idx()].Store(s.state.generation())
		if !s.wq.Queue(s.moveWork[mark.Idx()]) {
			// Hand the move back to the next tick.
			s.state.pending.Store(true)
			log.Warn("move work not queued", "mark", mark.Mark())
		}
	}

	s.loadWQ.Queue(s.loadWork)
	s.wq.Queue(s.drawWork)

	log.Debug("dispatched", "elapsed", time.Since(start))
}
