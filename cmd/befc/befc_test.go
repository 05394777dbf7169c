package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func writeFixture(t *testing.T, fx fixtureModule) string {
	t.Helper()
	raw, err := msgpack.Marshal(fx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fixture.irmsgpack")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func identityFixture() fixtureModule {
	return fixtureModule{
		Funcs: []fixtureFunc{
			{
				Name:    "identity",
				Inputs:  []int{32},
				Results: []int{32},
				Kind:    "async",
				Return:  []int{0},
			},
		},
	}
}

func addFixture() fixtureModule {
	return fixtureModule{
		Funcs: []fixtureFunc{
			{
				Name:    "add_two",
				Inputs:  []int{32, 32},
				Results: []int{32},
				Kind:    "async",
				Ops: []fixtureOp{
					{Name: "test.add", Operands: []int{0, 1}, ResultWidth: 32},
				},
				Return: []int{2},
			},
		},
	}
}

func TestBuildCmdWritesArtifact(t *testing.T) {
	fxPath := writeFixture(t, identityFixture())
	outPath := fxPath + ".bef"

	cmd := newRootCmd()
	cmd.SetArgs([]string{"build", fxPath, "-o", outPath, "--config", filepath.Join(t.TempDir(), "missing.toml")})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, cmd.Execute())

	artifact, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.NotEmpty(t, artifact)
}

func TestEmitCmdWritesToStdout(t *testing.T) {
	fxPath := writeFixture(t, addFixture())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"emit", fxPath})
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, cmd.Execute())
	require.NotEmpty(t, out.Bytes())
}

func TestEmitCmdReportsDiagnosticsOnUnknownValue(t *testing.T) {
	fx := fixtureModule{
		Funcs: []fixtureFunc{
			{
				Name:   "broken",
				Kind:   "async",
				Return: []int{5},
			},
		},
	}
	fxPath := writeFixture(t, fx)

	var errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"emit", fxPath})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&errOut)

	require.Error(t, cmd.Execute())
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"version"})
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "befc")
}
