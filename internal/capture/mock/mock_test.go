package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

func TestSource_CyclesFrames(t *testing.T) {
	s := New(
		domain.Frame{Data: []byte("a")},
		domain.Frame{Data: []byte("b")},
	)
	require.NoError(t, s.Open(context.Background()))

	var got []string
	for i := 0; i < 3; i++ {
		f, err := s.ReadFrame(context.Background())
		require.NoError(t, err)
		got = append(got, string(f.Data))
	}

	assert.Equal(t, []string{"a", "b", "a"}, got)
	assert.Equal(t, 3, s.Reads())
}

func TestSource_FramesAreCopies(t *testing.T) {
	s := New(domain.Frame{Data: []byte("abc")})

	f, err := s.ReadFrame(context.Background())
	require.NoError(t, err)
	f.Data[0] = 'z'

	again, err := s.ReadFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Data))
}

func TestSource_Failures(t *testing.T) {
	boom := errors.New("usb unplugged")

	s := Synthetic(32, 24).FailOpen(boom)
	assert.ErrorIs(t, s.Open(context.Background()), boom)
	assert.False(t, s.Opened())

	s = Synthetic(32, 24)
	s.FailReads(boom)
	_, err := s.ReadFrame(context.Background())
	assert.ErrorIs(t, err, boom)

	s.FailReads(nil)
	f, err := s.ReadFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32, f.Width)
}

func TestSource_CloseUnblocksHeldRead(t *testing.T) {
	s := Synthetic(16, 16)
	s.Hold()

	errCh := make(chan error, 1)
	go func() {
		_, err := s.ReadFrame(context.Background())
		errCh <- err
	}()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("read stayed blocked after Close")
	}
	assert.Equal(t, 2, s.CloseCalls())
}

func TestSource_Release(t *testing.T) {
	s := Synthetic(16, 16)
	s.Hold()

	frameCh := make(chan domain.Frame, 1)
	go func() {
		f, _ := s.ReadFrame(context.Background())
		frameCh <- f
	}()

	s.Release()

	select {
	case f := <-frameCh:
		assert.False(t, f.Empty())
	case <-time.After(time.Second):
		t.Fatal("read stayed blocked after Release")
	}
}

func TestGenerateFrame(t *testing.T) {
	f := GenerateFrame(320, 240)
	assert.Equal(t, 320, f.Width)
	assert.Equal(t, 240, f.Height)
	assert.Equal(t, []byte{0xFF, 0xD8}, f.Data[:2], "jpeg magic")
}
