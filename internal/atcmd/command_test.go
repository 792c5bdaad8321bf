package atcmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTerminatesWithCR(t *testing.T) {
	assert.Equal(t, Command("AT\r"), New("AT"))
	assert.Equal(t, Command("AT\r"), New("AT\r"))
	assert.Equal(t, "AT+CFUN=5", New("AT+CFUN=5").Text())
	assert.Equal(t, []byte("ATI\r"), New("ATI").Bytes())
}

func TestBuildersProduceExactText(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"at", AT(), "AT\r"},
		{"enter psm", EnterPSM(), "AT+CFUN=5\r"},
		{"exit psm", ExitPSM(), "AT+CFUN=1\r"},
		{"cmee", CMEE(), "AT+CMEE=2\r"},
		{"psmri", PSMRI(500), "AT#PSMRI=500\r"},
		{"cpin", CPIN("0000"), "AT+CPIN=0000\r"},
		{"reboot", Reboot(), "AT#ENHRST=1,0\r"},
		{"sgact on", SGACT(2, true), "AT#SGACT=2,1\r"},
		{"sgact off", SGACT(2, false), "AT#SGACT=2,0\r"},
		{"sd", SD(5, 5000, "161.230.159.26"), "AT#SD=5,0,5000,\"161.230.159.26\",0,0,1\r"},
		{"sh", SH(5), "AT#SH=5\r"},
		{"cgdcont", CGDCONT(2, "internet"), "AT+CGDCONT=2, \"IP\" ,\" internet \", \"\",0,0,0,0\r"},
		{"scfgext", SCFGEXT(5), "AT#SCFGEXT=5,1,0,0,0,0\r"},
		{"scfgext2", SCFGEXT2(5), "AT#SCFGEXT2=5,0,0,0,0,2\r"},
		{"scfg", SCFG(5), "AT#SCFG=5,2,1500,0,600,0\r"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.String())
		})
	}
}

var testNetwork = Network{
	APN:       "internet",
	Server:    "161.230.159.26",
	Port:      5000,
	PIN:       "0000",
	Context:   2,
	Socket:    5,
	PSMRingMs: 500,
}

func TestSequences(t *testing.T) {
	assert.Equal(t, []Command{"AT\r", "AT+CFUN=1\r", "AT+CMEE=2\r", "AT#PSMRI=500\r", "AT+CPIN=0000\r"},
		InitialSetup(testNetwork))
	assert.Len(t, OneTime(testNetwork), 4)
	assert.Equal(t, []Command{"AT#SGACT=2,1\r", "AT#SD=5,0,5000,\"161.230.159.26\",0,0,1\r"},
		OpenSocket(testNetwork))
	assert.Equal(t, []Command{"AT#SH=5\r", "AT#SGACT=2,0\r"}, CloseSocket(testNetwork))
}

type recordingSender struct {
	sent []Command
	fail map[Command]error
}

func (r *recordingSender) Send(cmd Command) ([]byte, error) {
	r.sent = append(r.sent, cmd)
	if err := r.fail[cmd]; err != nil {
		return nil, err
	}
	return []byte("\r\nOK\r\n"), nil
}

func TestRunContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	s := &recordingSender{fail: map[Command]error{"AT+CMEE=2\r": boom}}

	err := Run(s, InitialSetup(testNetwork), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "AT+CMEE=2")
	assert.Equal(t, InitialSetup(testNetwork), s.sent)
}

func TestRunAllSucceed(t *testing.T) {
	s := &recordingSender{}
	assert.NoError(t, Run(s, CloseSocket(testNetwork), nil))
	assert.Len(t, s.sent, 2)
}
