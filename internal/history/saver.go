package history

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mrlokans/reader/internal/notify"
)

// run is the save loop. The next tick is scheduled only after the previous
// save completed, so there is never more than one POST in flight.
func (s *Store) run() {
	defer close(s.doneCh)

	log.Printf("[HISTORY] Save loop started for %s", s.documentID)

	timer := time.NewTimer(s.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Printf("[HISTORY] Save loop stopped for %s", s.documentID)
			return
		case <-timer.C:
			s.save()
		case <-s.retryCh:
			timer.Stop()
			s.save()
		}
		timer.Reset(s.nextDelay())
	}
}

func (s *Store) nextDelay() time.Duration {
	now := time.Now()
	d := s.config.Schedule.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// save posts the current position when it is dirty. On failure the store
// stays dirty and the same record is resubmitted on the next tick.
func (s *Store) save() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	rec := Record{Data: string(s.current)}
	if s.version != nil {
		v := *s.version
		rec.Version = &v
	}
	s.mu.Unlock()

	resp, err := s.requester.Do(s.ctx, http.MethodPost, s.path("set"), rec)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.saveFailed(err.Error())
		return
	}

	if resp.StatusCode != http.StatusCreated {
		s.saveFailed(resp.Text())
		return
	}

	var vr versionResponse
	if err := json.Unmarshal(resp.Body, &vr); err != nil {
		s.saveFailed(fmt.Sprintf("malformed response: %v", err))
		return
	}

	s.mu.Lock()
	s.version = &vr.Version
	if string(s.current) == rec.Data {
		s.dirty = false
	}
	s.mu.Unlock()

	log.Printf("[HISTORY] Saved position for %s (version %d)", s.documentID, vr.Version)
}

func (s *Store) saveFailed(message string) {
	log.Printf("[HISTORY] save history failed for %s: %s", s.documentID, message)
	s.notifier.Notify(notify.Notice{
		Kind:    notify.Persistent,
		Message: "save history failed. message: " + message,
		Retry:   s.Retry,
	})
}
