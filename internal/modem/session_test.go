package modem

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psm-modem-console/internal/atcmd"
)

func newTestSession(t *testing.T) (*Session, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	s, err := NewSession(ft, nil)
	require.NoError(t, err)
	return s, ft
}

func asleepSession(t *testing.T) (*Session, *fakeTransport) {
	t.Helper()
	s, ft := newTestSession(t)
	_, err := s.Send(atcmd.EnterPSM())
	require.NoError(t, err)
	require.Equal(t, Asleep, s.State())
	ft.reset()
	return s, ft
}

func TestNewSessionStartsAwakeWithLineAsserted(t *testing.T) {
	s, ft := newTestSession(t)

	events, dtr, _ := ft.snapshot()
	assert.Equal(t, Awake, s.State())
	assert.True(t, dtr)
	assert.Equal(t, []string{"dtr=1"}, events)
}

func TestNewSessionFailsWhenLineCannotBeAsserted(t *testing.T) {
	ft := newFakeTransport()
	ft.dtrErr = errors.New("ioctl failed")

	_, err := NewSession(ft, nil)
	assert.ErrorIs(t, err, ErrControlFailure)
}

func TestSendAwakeEnterPSM(t *testing.T) {
	s, ft := newTestSession(t)
	ft.reset()
	ft.queue("\r\nOK\r\n")

	resp, err := s.Send(atcmd.New("AT+CFUN=5"))
	require.NoError(t, err)

	events, dtr, _ := ft.snapshot()
	assert.Equal(t, "\r\nOK\r\n", string(resp))
	assert.Equal(t, Asleep, s.State())
	assert.False(t, dtr)
	assert.Equal(t, []string{"write:AT+CFUN=5\r", "read", "dtr=0"}, events)
}

func TestSendAsleepNoChangeWakesThenSleeps(t *testing.T) {
	s, ft := asleepSession(t)

	_, err := s.Send(atcmd.AT())
	require.NoError(t, err)

	events, dtr, dtrAtWrite := ft.snapshot()
	assert.Equal(t, Asleep, s.State())
	assert.False(t, dtr)
	assert.Equal(t, []bool{true}, dtrAtWrite)
	assert.Equal(t, []string{"dtr=1", "write:AT\r", "read", "dtr=0"}, events)
}

func TestSendAsleepExitPSMLeavesLineAsserted(t *testing.T) {
	s, ft := asleepSession(t)

	_, err := s.Send(atcmd.New("AT+CFUN=1"))
	require.NoError(t, err)

	events, dtr, _ := ft.snapshot()
	assert.Equal(t, Awake, s.State())
	assert.True(t, dtr)
	assert.Equal(t, []string{"dtr=1", "write:AT+CFUN=1\r", "read"}, events)
}

func TestSendAsleepEnterPSMAgain(t *testing.T) {
	s, ft := asleepSession(t)

	_, err := s.Send(atcmd.EnterPSM())
	require.NoError(t, err)

	events, dtr, dtrAtWrite := ft.snapshot()
	assert.Equal(t, Asleep, s.State())
	assert.False(t, dtr)
	assert.Equal(t, []bool{true}, dtrAtWrite)
	assert.Equal(t, []string{"dtr=1", "write:AT+CFUN=5\r", "read", "dtr=0"}, events)
}

func TestSendAwakeExitPSMKeepsLineAsserted(t *testing.T) {
	s, ft := newTestSession(t)

	_, err := s.Send(atcmd.ExitPSM())
	require.NoError(t, err)

	_, dtr, _ := ft.snapshot()
	assert.Equal(t, Awake, s.State())
	assert.True(t, dtr)
}

func TestNoChangeCommandsPreserveState(t *testing.T) {
	cmds := []atcmd.Command{
		atcmd.AT(),
		atcmd.CMEE(),
		atcmd.New("AT+CFUN=0"),
		atcmd.New("AT+CFUN=5,1"),
		atcmd.New("ATI"),
		atcmd.SH(5),
	}
	for _, start := range []State{Awake, Asleep} {
		for _, cmd := range cmds {
			t.Run(start.String()+"/"+cmd.Text(), func(t *testing.T) {
				var s *Session
				var ft *fakeTransport
				if start == Asleep {
					s, ft = asleepSession(t)
				} else {
					s, ft = newTestSession(t)
				}

				_, err := s.Send(cmd)
				require.NoError(t, err)

				_, dtr, dtrAtWrite := ft.snapshot()
				assert.Equal(t, start, s.State())
				assert.Equal(t, start == Awake, dtr)
				assert.NotContains(t, dtrAtWrite, false)
			})
		}
	}
}

func TestClassificationIsCaseInsensitive(t *testing.T) {
	s, ft := newTestSession(t)

	_, err := s.Send(atcmd.New("at+cfun=5"))
	require.NoError(t, err)
	assert.Equal(t, Asleep, s.State())

	_, err = s.Send(atcmd.New("At+CfUn=1"))
	require.NoError(t, err)
	assert.Equal(t, Awake, s.State())

	_, dtr, _ := ft.snapshot()
	assert.True(t, dtr)
}

func TestSendTimeoutIsEmptyResponse(t *testing.T) {
	s, _ := newTestSession(t)

	resp, err := s.Send(atcmd.AT())
	assert.NoError(t, err)
	assert.Empty(t, resp)
}

func TestWriteFailureStillCommitsState(t *testing.T) {
	s, ft := newTestSession(t)
	ft.reset()
	ft.writeErr = errors.New("input/output error")

	resp, err := s.Send(atcmd.EnterPSM())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Nil(t, resp)

	events, dtr, _ := ft.snapshot()
	assert.Equal(t, Asleep, s.State())
	assert.False(t, dtr)
	assert.Equal(t, []string{"write:AT+CFUN=5\r", "dtr=0"}, events)
}

func TestWriteFailureWhileAsleepDoesNotLeaveLineAsserted(t *testing.T) {
	s, ft := asleepSession(t)
	ft.writeErr = errors.New("input/output error")

	_, err := s.Send(atcmd.AT())
	assert.ErrorIs(t, err, ErrSendFailed)

	_, dtr, _ := ft.snapshot()
	assert.Equal(t, Asleep, s.State())
	assert.False(t, dtr)
}

func TestReadFailureIsReported(t *testing.T) {
	s, ft := asleepSession(t)
	readErr := errors.New("input/output error")
	ft.readErr = readErr

	_, err := s.Send(atcmd.AT())
	assert.ErrorIs(t, err, readErr)

	_, dtr, _ := ft.snapshot()
	assert.Equal(t, Asleep, s.State())
	assert.False(t, dtr)
}

func TestAssertFailureSkipsWrite(t *testing.T) {
	s, ft := asleepSession(t)
	ft.setDTRErr(errors.New("ioctl failed"))

	_, err := s.Send(atcmd.AT())
	assert.ErrorIs(t, err, ErrControlFailure)

	events, _, _ := ft.snapshot()
	assert.Empty(t, events)
	assert.Equal(t, Asleep, s.State())
}

func TestDeassertFailureLeavesStateUnchanged(t *testing.T) {
	s, ft := newTestSession(t)
	ft.setDTRErr(errors.New("ioctl failed"))

	_, err := s.Send(atcmd.EnterPSM())
	assert.ErrorIs(t, err, ErrControlFailure)
	assert.Equal(t, Awake, s.State())
}

func TestConcurrentSendsNeverWriteWithLineDeasserted(t *testing.T) {
	s, ft := newTestSession(t)
	cmds := []atcmd.Command{atcmd.EnterPSM(), atcmd.AT(), atcmd.ExitPSM(), atcmd.CMEE()}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(cmd atcmd.Command) {
			defer wg.Done()
			_, err := s.Send(cmd)
			assert.NoError(t, err)
		}(cmds[i%len(cmds)])
	}
	wg.Wait()

	_, dtr, dtrAtWrite := ft.snapshot()
	assert.Len(t, dtrAtWrite, 40)
	assert.NotContains(t, dtrAtWrite, false)
	assert.Equal(t, s.State() == Awake, dtr)
}

func TestShutdownIsIdempotent(t *testing.T) {
	s, ft := newTestSession(t)
	s.StartReader(nil)

	assert.NoError(t, s.Shutdown())
	assert.NoError(t, s.Shutdown())

	ft.mu.Lock()
	defer ft.mu.Unlock()
	assert.True(t, ft.closed)
}
