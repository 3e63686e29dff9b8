package virtinstall

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/executor"
	"github.com/jbweber/virtbuilder/internal/executor/executortest"
)

const printedXML = `<domain type="kvm"><name>win11</name></domain>` + "\n"

func TestSynthesize_CapturesDefinition(t *testing.T) {
	ctx, _ := executortest.Context(false)
	exec, runner := executortest.New()
	runner.OnExit("virt-install", 0, printedXML, "")

	def, err := NewSynthesizer(exec, connectURI).Synthesize(ctx, windowsVM(), windowsDisks(), bridgeNetwork(), Media{})
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, printedXML, def.String())

	require.Len(t, runner.Calls(), 1)
	want, err := Args(connectURI, windowsVM(), windowsDisks(), bridgeNetwork(), Media{})
	require.NoError(t, err)
	assert.Equal(t, want, runner.Calls()[0])
}

func TestSynthesize_GenerationFailures(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		stdout string
		stderr string
	}{
		{name: "nonzero exit", code: 1, stderr: "ERROR    Unknown OS name 'win99'"},
		{name: "stderr with zero exit", code: 0, stdout: printedXML, stderr: "WARNING  Requested memory exceeds host"},
		{name: "empty output", code: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := executortest.Context(false)
			exec, runner := executortest.New()
			runner.OnExit("virt-install", tt.code, tt.stdout, tt.stderr)

			def, err := NewSynthesizer(exec, connectURI).Synthesize(ctx, windowsVM(), windowsDisks(), bridgeNetwork(), Media{})
			assert.Nil(t, def)
			require.ErrorIs(t, err, ErrGenerationFailed)
		})
	}
}

func TestSynthesize_SpawnFailure(t *testing.T) {
	ctx, _ := executortest.Context(false)
	exec, runner := executortest.New()
	runner.On("virt-install", executortest.Response{Err: errors.New("executable file not found in $PATH")})

	_, err := NewSynthesizer(exec, connectURI).Synthesize(ctx, windowsVM(), windowsDisks(), bridgeNetwork(), Media{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGenerationFailed)
}

func TestSynthesize_InvalidConfigRunsNothing(t *testing.T) {
	ctx, _ := executortest.Context(false)
	exec, runner := executortest.New()

	n := bridgeNetwork()
	n.Type = "vxlan"
	_, err := NewSynthesizer(exec, connectURI).Synthesize(ctx, windowsVM(), windowsDisks(), n, Media{})

	var cfgErr *config.Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Empty(t, runner.Calls())
}

func TestSynthesize_DryRun(t *testing.T) {
	ctx, logs := executortest.Context(true)
	exec, runner := executortest.New()

	def, err := NewSynthesizer(exec, connectURI).Synthesize(ctx, windowsVM(), windowsDisks(), bridgeNetwork(), Media{})
	require.NoError(t, err)
	assert.Nil(t, def)
	assert.Empty(t, runner.Calls())

	args, err := Args(connectURI, windowsVM(), windowsDisks(), bridgeNetwork(), Media{})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "would execute")
	assert.Contains(t, logs.String(), executor.CommandLine(args))
}

func ipvtapNetwork() config.NetworkSpec {
	return config.NetworkSpec{Type: config.NetworkIPvtap, MAC: "52:54:00:00:00:01", ParentInterface: "eno1", Model: "virtio"}
}

const (
	showLink  = "ip link show ipvtap0"
	showState = "ip -o link show ipvtap0"
	addLink   = "ip link add name ipvtap0 link eno1 type ipvtap mode l2 bridge"
	setUp     = "ip link set ipvtap0 up"
)

func TestSynthesize_IPVTapLink(t *testing.T) {
	tests := []struct {
		name   string
		script func(r *executortest.Runner)
		want   []string
	}{
		{
			name: "absent",
			script: func(r *executortest.Runner) {
				r.OnExit(showLink, 1, "", `Device "ipvtap0" does not exist.`)
				r.OnExit(showState, 1, "", "")
			},
			want: []string{showLink, addLink, showState, setUp},
		},
		{
			name: "present and down",
			script: func(r *executortest.Runner) {
				r.OnExit(showState, 0, "7: ipvtap0@eno1: <BROADCAST,MULTICAST> mtu 1500 state DOWN", "")
			},
			want: []string{showLink, showState, setUp},
		},
		{
			name: "present and up",
			script: func(r *executortest.Runner) {
				r.OnExit(showState, 0, "7: ipvtap0@eno1: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 state UP", "")
			},
			want: []string{showLink, showState},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := executortest.Context(false)
			exec, runner := executortest.New()
			tt.script(runner)
			runner.OnExit("virt-install", 0, printedXML, "")

			_, err := NewSynthesizer(exec, connectURI).Synthesize(ctx, windowsVM(), windowsDisks(), ipvtapNetwork(), Media{})
			require.NoError(t, err)

			lines := runner.Lines()
			require.NotEmpty(t, lines)
			assert.Equal(t, tt.want, lines[:len(lines)-1])
			assert.Contains(t, lines[len(lines)-1], "virt-install")
		})
	}
}

func TestSynthesize_IPVTapCreateFailureIsFatal(t *testing.T) {
	ctx, _ := executortest.Context(false)
	exec, runner := executortest.New()
	runner.OnExit(showLink, 1, "", "")
	runner.OnExit(addLink, 2, "", "RTNETLINK answers: Operation not permitted")

	_, err := NewSynthesizer(exec, connectURI).Synthesize(ctx, windowsVM(), windowsDisks(), ipvtapNetwork(), Media{})

	var cmdErr *executor.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Zero(t, runner.CountPrefix("virt-install"))
}

func TestSynthesize_IPVTapDryRunOnlyProbes(t *testing.T) {
	ctx, logs := executortest.Context(true)
	exec, runner := executortest.New()
	runner.OnExit(showLink, 1, "", "")
	runner.OnExit(showState, 1, "", "")

	_, err := NewSynthesizer(exec, connectURI).Synthesize(ctx, windowsVM(), windowsDisks(), ipvtapNetwork(), Media{})
	require.NoError(t, err)

	assert.Equal(t, []string{showLink, showState}, runner.Lines())
	assert.Contains(t, logs.String(), addLink)
	assert.Contains(t, logs.String(), setUp)
}

func TestAdminUp(t *testing.T) {
	assert.True(t, adminUp("3: eth0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500"))
	assert.False(t, adminUp("3: eth0: <BROADCAST,MULTICAST> mtu 1500 state DOWN"))
	assert.False(t, adminUp("3: eth0: <NO-CARRIER,BROADCAST,MULTICAST,LOWER_UP>"))
	assert.False(t, adminUp(""))
}
