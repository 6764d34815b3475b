package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/colormap/testutils"
)

func TestRunStages(t *testing.T) {
	dir := testutils.TempDir(t, "", "colormap")
	defer os.RemoveAll(dir)
	configPath := filepath.Join(dir, "run.yaml")
	logPath := filepath.Join(dir, "colormap.log")
	config := `
scene:
  width: 80
  height: 60
  frames: 3
  perturbation: 1
iterations: 4
options:
  number_of_vertical_anchors: 4
  image_boundary_margin: 5
`
	test.That(t, os.WriteFile(configPath, []byte(config), 0o600), test.ShouldBeNil)

	var out bytes.Buffer
	err := newApp(&out).Run([]string{"colormap", "--config", configPath, "--iterations", "1", "--log-file", logPath})
	test.That(t, err, test.ShouldBeNil)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	test.That(t, len(lines), test.ShouldEqual, 3)
	test.That(t, lines[0], test.ShouldStartWith, "disabled")
	test.That(t, lines[1], test.ShouldStartWith, "rigid")
	test.That(t, lines[2], test.ShouldStartWith, "non_rigid")

	logs, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logs), test.ShouldContainSubstring, "finished color map optimization")
}

func TestNonRigidOnly(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run([]string{
		"colormap", "--non-rigid-only", "--iterations", "1", "--width", "64", "--height", "48", "--frames", "2",
	})
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	test.That(t, len(lines), test.ShouldEqual, 1)
	test.That(t, lines[0], test.ShouldStartWith, "non_rigid")
}

func TestConfigErrors(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run([]string{"colormap", "--config", "/nonexistent/run.yaml"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "reading config")

	err = newApp(&out).Run([]string{"colormap", "--frames", "0"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least one frame")

	dir := testutils.TempDir(t, "", "colormap")
	defer os.RemoveAll(dir)
	configPath := filepath.Join(dir, "run.yaml")
	test.That(t, os.WriteFile(configPath, []byte("options:\n  maximum_iterations: 3\n"), 0o600), test.ShouldBeNil)
	err = newApp(&out).Run([]string{"colormap", "--config", configPath})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "maximum_iterations")
	test.That(t, out.Len(), test.ShouldEqual, 0)
}

func TestConfigLayering(t *testing.T) {
	cfg := defaultRunConfig()
	dir := testutils.TempDir(t, "", "colormap")
	defer os.RemoveAll(dir)
	configPath := filepath.Join(dir, "run.yaml")
	test.That(t, os.WriteFile(configPath, []byte("scene:\n  frames: 7\nnon_rigid_only: true\n"), 0o600), test.ShouldBeNil)
	test.That(t, loadRunConfig(configPath, cfg), test.ShouldBeNil)
	test.That(t, cfg.Scene.Frames, test.ShouldEqual, 7)
	test.That(t, cfg.Scene.Width, test.ShouldEqual, 160)
	test.That(t, cfg.NonRigidOnly, test.ShouldBeTrue)
	test.That(t, cfg.Iterations, test.ShouldEqual, 5)
}
