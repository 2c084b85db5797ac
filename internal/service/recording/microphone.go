package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// Microphone hands out an audio stream. Closing the stream releases the device.
type Microphone interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// PushMicrophone models a browser microphone whose chunks arrive over the
// network. Granted mirrors the permission answer reported by the widget.
type PushMicrophone struct {
	Granted bool
}

// Open returns a stream that stays silent until closed; chunks are pushed
// through Session.Write instead.
func (m PushMicrophone) Open(ctx context.Context) (io.ReadCloser, error) {
	if !m.Granted {
		return nil, ErrPermissionDenied
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newIdleStream(), nil
}

type idleStream struct {
	once sync.Once
	done chan struct{}
}

func newIdleStream() *idleStream {
	return &idleStream{done: make(chan struct{})}
}

func (s *idleStream) Read([]byte) (int, error) {
	<-s.done
	return 0, io.EOF
}

func (s *idleStream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// FileMicrophone replays an audio file as if it were captured live.
type FileMicrophone struct {
	Path string
}

// Open 打开音频文件；无权限时视为麦克风授权被拒绝
func (m FileMicrophone) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(m.Path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, m.Path)
		}
		return nil, fmt.Errorf("open audio source: %w", err)
	}
	return f, nil
}
