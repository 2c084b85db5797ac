package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/sourcegraph/conc"
)

// State is the recording state of one chat session.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// DefaultMaxBytes caps one recorded clip.
const DefaultMaxBytes = 10 << 20

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("not recording")
	ErrNoAudio          = errors.New("no audio captured")
	ErrClipTooLarge     = errors.New("recorded clip exceeds size limit")
)

// Session buffers audio between Start and Stop. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	state    State
	stream   io.ReadCloser
	buf      []byte
	maxBytes int
	overflow bool
	capture  *conc.WaitGroup
	done     chan struct{}
}

// NewSession creates an idle recording session. maxBytes <= 0 uses DefaultMaxBytes.
func NewSession(maxBytes int) *Session {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Session{state: StateIdle, maxBytes: maxBytes}
}

// State reports the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Recording reports whether audio is being captured.
func (s *Session) Recording() bool {
	return s.State() == StateRecording
}

// Start acquires the microphone and begins capturing. On any failure the
// session stays idle.
func (s *Session) Start(ctx context.Context, mic Microphone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRecording {
		return ErrAlreadyRecording
	}

	stream, err := mic.Open(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			log.Printf("[recording] microphone permission denied: %v", err)
			return err
		}
		return fmt.Errorf("acquire microphone: %w", err)
	}

	s.state = StateRecording
	s.stream = stream
	s.buf = s.buf[:0]
	s.overflow = false
	s.done = make(chan struct{})
	s.capture = conc.NewWaitGroup()

	done := s.done
	s.capture.Go(func() {
		defer close(done)
		s.drain(stream)
	})
	return nil
}

// drain copies pulled audio into the buffer until the stream ends or is closed.
func (s *Session) drain(stream io.Reader) {
	chunk := make([]byte, 32*1024)
	for {
		n, err := stream.Read(chunk)
		if n > 0 {
			if werr := s.Write(chunk[:n]); werr != nil {
				log.Printf("[recording] capture stopped: %v", werr)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Write appends a chunk while recording. Chunks arriving while idle are dropped.
// Once the clip overflows, the buffered audio is discarded and every later
// write fails until the next Start.
func (s *Session) Write(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording {
		return nil
	}
	if s.overflow {
		return ErrClipTooLarge
	}
	if len(s.buf)+len(chunk) > s.maxBytes {
		s.overflow = true
		s.buf = s.buf[:0]
		return ErrClipTooLarge
	}
	s.buf = append(s.buf, chunk...)
	return nil
}

// Done is closed when the microphone stream ends on its own or is released.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Stop releases the microphone and returns the captured clip. A clip with no
// data yields ErrNoAudio and an overflowed clip yields ErrClipTooLarge; in both
// cases callers skip transcription.
func (s *Session) Stop() ([]byte, error) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}
	stream, capture := s.stream, s.capture
	s.state = StateIdle
	s.stream = nil
	s.capture = nil
	s.mu.Unlock()

	if err := stream.Close(); err != nil {
		log.Printf("[recording] release microphone: %v", err)
	}
	capture.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overflow {
		s.overflow = false
		s.buf = s.buf[:0]
		return nil, ErrClipTooLarge
	}
	if len(s.buf) == 0 {
		return nil, ErrNoAudio
	}
	clip := make([]byte, len(s.buf))
	copy(clip, s.buf)
	s.buf = s.buf[:0]
	return clip, nil
}

// Release stops capturing and discards any buffered audio.
func (s *Session) Release() {
	_, err := s.Stop()
	switch {
	case err == nil, errors.Is(err, ErrNotRecording), errors.Is(err, ErrNoAudio), errors.Is(err, ErrClipTooLarge):
	default:
		log.Printf("[recording] release: %v", err)
	}
}
