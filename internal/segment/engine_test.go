package segment

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocv.io/x/gocv"
)

// fakeInterpreter writes a shell script standing in for python so engine
// startup and the request loop can be tested without a model.
func fakeInterpreter(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter uses /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "fakepython")
	script := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestStart_ReadyHandshake(t *testing.T) {
	// Args: $1=worker.py $2=--model $3=<model> $4=--device $5=<device>
	py := fakeInterpreter(t, `
printf '{"event":"ready","device":"%s","accelerated":false}\n' "$5"
exec cat >/dev/null
`)
	eng, err := Start(context.Background(), StartConfig{
		Python: py, Model: "cpsam", Device: DeviceCPU,
	})
	require.NoError(t, err)
	defer eng.Close()

	assert.Equal(t, DeviceCPU, eng.Device())
	assert.False(t, eng.Accelerated())
	assert.Equal(t, "cpsam", eng.Model())
}

func TestStart_FallsBackThroughPreferenceOrder(t *testing.T) {
	py := fakeInterpreter(t, `
if [ "$5" != "cpu" ]; then
  echo "RuntimeError: $5 requested but not available" >&2
  printf '{"event":"fatal","error":"%s unavailable"}\n' "$5"
  exit 1
fi
printf '{"event":"ready","device":"cpu","accelerated":false}\n'
exec cat >/dev/null
`)
	eng, err := Start(context.Background(), StartConfig{Python: py, Model: "cpsam"})
	require.NoError(t, err, "cpu fallback must succeed after cuda and mps fail")
	defer eng.Close()

	assert.Equal(t, DeviceCPU, eng.Device())
}

func TestStart_AllDevicesFail(t *testing.T) {
	py := fakeInterpreter(t, `
printf '{"event":"fatal","error":"no such model"}\n'
exit 1
`)
	_, err := Start(context.Background(), StartConfig{Python: py, Model: "bogus"})
	require.ErrorIs(t, err, ErrNoDevice)
	assert.Contains(t, err.Error(), "no such model")
}

func TestStart_ExitBeforeHandshake(t *testing.T) {
	py := fakeInterpreter(t, `
echo "ModuleNotFoundError: No module named 'cellpose'" >&2
exit 1
`)
	_, err := Start(context.Background(), StartConfig{Python: py, Model: "cpsam", Device: DeviceCPU})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a required module")
}

func TestStart_PythonMissing(t *testing.T) {
	_, err := Start(context.Background(), StartConfig{
		Python: "definitely-not-a-python-binary", Model: "cpsam", Device: DeviceCPU,
	})
	require.ErrorIs(t, err, ErrPythonNotFound)
}

func TestEngine_InferRoundTrip(t *testing.T) {
	fixture := writeMaskFixture(t)
	t.Setenv("FAKE_MASK", fixture)

	py := fakeInterpreter(t, `
printf '{"event":"ready","device":"cpu","accelerated":false}\n'
while read line; do
  printf '{"event":"result","ok":true,"mask":"%s","shape":[2,3]}\n' "$FAKE_MASK"
done
`)
	eng, err := Start(context.Background(), StartConfig{Python: py, Model: "cpsam", Device: DeviceCPU})
	require.NoError(t, err)
	defer eng.Close()

	res, err := eng.Infer(context.Background(), "/data/plate1.tif", Options{
		Channels: [2]int{0, 0}, Downscale: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Mask.MaxLabel())
	assert.Equal(t, "2x3", res.ShapeString())
}

func TestEngine_InferFailureKeepsEngineUsable(t *testing.T) {
	fixture := writeMaskFixture(t)
	t.Setenv("FAKE_MASK", fixture)

	py := fakeInterpreter(t, `
printf '{"event":"ready","device":"cpu","accelerated":false}\n'
read line
printf '{"event":"result","ok":false,"error":"cannot identify image file"}\n'
read line
printf '{"event":"result","ok":true,"mask":"%s","shape":[2,3]}\n' "$FAKE_MASK"
`)
	eng, err := Start(context.Background(), StartConfig{Python: py, Model: "cpsam", Device: DeviceCPU})
	require.NoError(t, err)
	defer eng.Close()

	_, err = eng.Infer(context.Background(), "/data/bad.tif", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot identify image file")

	res, err := eng.Infer(context.Background(), "/data/good.tif", Options{})
	require.NoError(t, err, "a per-image failure must not poison the engine")
	assert.Equal(t, 5, res.Mask.MaxLabel())
}

// writeMaskFixture creates a small 16-bit label mask PNG with max label 5.
func writeMaskFixture(t *testing.T) string {
	t.Helper()
	mat := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV16U)
	defer mat.Close()
	data, err := mat.DataPtrUint16()
	require.NoError(t, err)
	copy(data, []uint16{0, 1, 2, 0, 5, 3})

	path := filepath.Join(t.TempDir(), "mask.png")
	if !gocv.IMWrite(path, mat) {
		t.Fatal("cannot write mask fixture")
	}
	return path
}
