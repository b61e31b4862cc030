package framebuffer

import (
	"bytes"
	"context"
	"image/color"
	"io"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeatGlow/fbdisplay/pixel"
)

type testDevice struct {
	err    error
	waits  atomic.Int32
	closed atomic.Int32
	onWait func()
}

func (d *testDevice) WaitForVSync() error {
	d.waits.Add(1)
	if d.onWait != nil {
		d.onWait()
	}
	return d.err
}

func (d *testDevice) Close() error {
	d.closed.Add(1)
	return nil
}

type testTarget struct {
	err    error
	panic  bool
	writes int
	last   []byte
}

func (t *testTarget) WriteAt(p []byte, _ int64) (int, error) {
	if t.panic {
		panic("device gone")
	}
	if t.err != nil {
		return 0, t.err
	}
	t.writes++
	t.last = bytes.Clone(p)
	return len(p), nil
}

func testScreenInfo(width, height, stride, bpp, blueOffset uint32) (FixedScreenInfo, VarScreenInfo) {
	var (
		fix  FixedScreenInfo
		info VarScreenInfo
	)
	copy(fix.ID[:], "test")
	fix.LineLength = stride
	fix.SmemLen = stride * height
	info.Xres, info.Yres = width, height
	info.XresVirtual, info.YresVirtual = width, height
	info.BitsPerPixel = bpp
	info.Blue.Offset = blueOffset
	return fix, info
}

func testOutput(t *testing.T, dev Device, target io.WriterAt, width, height, stride, bpp uint32) *Output {
	t.Helper()
	fix, info := testScreenInfo(width, height, stride, bpp, 0)
	o, err := NewOutput(dev, fix, info, target)
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		Name       string
		Info       VarScreenInfo
		Want       PixelFormat
		Bytes      int
		ColorModel color.Model
	}{
		{"16bpp", VarScreenInfo{BitsPerPixel: 16}, RGB565, 2, pixel.CRGB16Model},
		{"16bpp-blue-16", VarScreenInfo{BitsPerPixel: 16, Blue: BitField{Offset: 16}}, RGB565, 2, pixel.CRGB16Model},
		{"32bpp-blue-16", VarScreenInfo{BitsPerPixel: 32, Blue: BitField{Offset: 16}}, RGBA8888, 4, color.RGBAModel},
		{"32bpp-blue-8", VarScreenInfo{BitsPerPixel: 32, Blue: BitField{Offset: 8}}, BGRA8888, 4, pixel.BGRAModel},
		{"32bpp-blue-0", VarScreenInfo{BitsPerPixel: 32, Blue: BitField{Offset: 0}}, BGRA8888, 4, pixel.BGRAModel},
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			f := FormatOf(&test.Info)
			assert.Equal(it, test.Want, f)
			assert.Equal(it, test.Bytes, f.BytesPerPixel())
			assert.Equal(it, test.ColorModel, f.ColorModel())
		})
	}
}

func TestNewMode(t *testing.T) {
	tests := []struct {
		Width, Height, Stride, BitsPerPixel uint32
	}{
		{1, 1, 2, 16},
		{800, 480, 1600, 16},
		{800, 480, 1664, 16},
		{1920, 1080, 7680, 32},
		{1366, 768, 5504, 32},
	}
	for _, test := range tests {
		fix, info := testScreenInfo(test.Width, test.Height, test.Stride, test.BitsPerPixel, 0)
		mode, err := NewMode(&fix, &info)
		require.NoError(t, err)
		assert.Equal(t, int(test.Width), mode.Width)
		assert.Equal(t, int(test.Height), mode.Height)
		assert.Equal(t, int(test.Stride), mode.Stride)
		assert.Equal(t, int(test.Stride*test.Height), mode.Len())
	}
}

func TestNewModeInvalid(t *testing.T) {
	tests := []struct {
		Name                                string
		Width, Height, Stride, BitsPerPixel uint32
	}{
		{"zero-width", 0, 480, 1600, 16},
		{"zero-height", 800, 0, 1600, 16},
		{"zero-stride", 800, 480, 0, 16},
		{"short-stride", 800, 480, 1599, 16},
		{"short-stride-32bpp", 800, 480, 1600, 32},
		{"packed-24bpp", 800, 480, 2400, 24},
		{"huge", math.MaxUint32, math.MaxUint32, math.MaxUint32, 32},
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			fix, info := testScreenInfo(test.Width, test.Height, test.Stride, test.BitsPerPixel, 0)
			_, err := NewMode(&fix, &info)
			require.Error(it, err)
			assert.ErrorIs(it, err, ErrInitialization)

			o, err := NewOutput(new(testDevice), fix, info, Memory(nil))
			assert.Nil(it, o)
			var initErr *InitializationError
			require.True(it, errors.As(err, &initErr))
			assert.NotEmpty(it, initErr.Reason)
		})
	}
}

func TestNewMode24bpp(t *testing.T) {
	// 24 bits per pixel derives BGRA8888, so rows must fit 4 bytes per pixel.
	fix, info := testScreenInfo(800, 480, 2400, 24, 0)
	_, err := NewMode(&fix, &info)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stride 2400 too small for 800 BGRA8888 pixels")

	fix, info = testScreenInfo(800, 480, 3200, 24, 0)
	mode, err := NewMode(&fix, &info)
	require.NoError(t, err)
	assert.Equal(t, BGRA8888, mode.Format)
	assert.Equal(t, 3200*480, mode.Len())
}

func TestNewOutputMissingDevice(t *testing.T) {
	fix, info := testScreenInfo(8, 8, 16, 16, 0)

	_, err := NewOutput(nil, fix, info, Memory(make([]byte, 128)))
	assert.ErrorIs(t, err, ErrInitialization)

	_, err = NewOutput(new(testDevice), fix, info, nil)
	assert.ErrorIs(t, err, ErrInitialization)
}

func TestNewOutputAllocationFailure(t *testing.T) {
	_, err := allocate(math.MaxInt)
	require.Error(t, err)

	injected := errors.New("out of memory")
	saved := allocate
	allocate = func(int) ([]byte, error) { return nil, injected }
	defer func() { allocate = saved }()

	fix, info := testScreenInfo(8, 8, 16, 16, 0)
	o, err := NewOutput(new(testDevice), fix, info, Memory(make([]byte, 128)))
	assert.Nil(t, o)
	assert.ErrorIs(t, err, ErrInitialization)
	assert.ErrorIs(t, err, injected)
}

func TestLockGeometry(t *testing.T) {
	tests := []struct {
		Width, Height, Stride, BitsPerPixel, BlueOffset uint32
		Format                                          PixelFormat
	}{
		{800, 480, 1600, 16, 0, RGB565},
		{320, 240, 1280, 32, 16, RGBA8888},
		{320, 240, 1344, 32, 0, BGRA8888},
	}
	for _, test := range tests {
		fix, info := testScreenInfo(test.Width, test.Height, test.Stride, test.BitsPerPixel, test.BlueOffset)
		o, err := NewOutput(new(testDevice), fix, info, Memory(make([]byte, test.Stride*test.Height)))
		require.NoError(t, err)

		dpi := DPI{X: 120, Y: 144}
		s, err := o.Lock(dpi)
		require.NoError(t, err)
		assert.Equal(t, int(test.Width), s.Size().X)
		assert.Equal(t, int(test.Height), s.Size().Y)
		assert.Equal(t, int(test.Stride), s.Stride())
		assert.Equal(t, test.Format, s.Format())
		assert.Equal(t, dpi, s.DPI())
		assert.Len(t, s.Bytes(), int(test.Stride*test.Height))
		assert.Equal(t, test.Format.ColorModel(), s.Image().ColorModel())
		require.NoError(t, s.Release())
		require.NoError(t, o.Close())
	}
}

func TestLockSerializes(t *testing.T) {
	o := testOutput(t, new(testDevice), Memory(make([]byte, 64*8)), 32, 8, 64, 16)

	first, err := o.Lock(DefaultDPI)
	require.NoError(t, err)

	acquired := make(chan *Surface)
	go func() {
		second, err := o.Lock(DefaultDPI)
		if err != nil {
			close(acquired)
			return
		}
		acquired <- second
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock returned while the first surface was outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Release())

	select {
	case second := <-acquired:
		require.NotNil(t, second)
		require.NoError(t, second.Release())
	case <-time.After(time.Second):
		t.Fatal("second Lock did not return after the first surface was released")
	}
}

func TestLockMutualExclusion(t *testing.T) {
	o := testOutput(t, new(testDevice), Memory(make([]byte, 16*4)), 8, 4, 16, 16)

	var (
		wg       sync.WaitGroup
		inFlight atomic.Int32
		overlaps atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s, err := o.Lock(DefaultDPI)
				if err != nil {
					t.Error(err)
					return
				}
				if inFlight.Add(1) != 1 {
					overlaps.Add(1)
				}
				pix := s.Bytes()
				for k := range pix {
					pix[k] = byte(i)
				}
				inFlight.Add(-1)
				if err = s.Release(); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load())
	assert.Equal(t, uint64(8*50), o.Stats().Frames)
}

func TestRoundTrip(t *testing.T) {
	var (
		front = make(Memory, 100*10)
		o     = testOutput(t, new(testDevice), front, 48, 10, 100, 16)
	)

	for frame := 0; frame < 3; frame++ {
		s, err := o.Lock(DefaultDPI)
		require.NoError(t, err)
		pix := s.Bytes()
		_, _ = rand.Read(pix)
		want := bytes.Clone(pix)

		require.NoError(t, s.Release())
		assert.Equal(t, want, []byte(front))
	}
}

func TestBackBufferRetainsLastFrame(t *testing.T) {
	front := make(Memory, 16*4)
	o := testOutput(t, new(testDevice), front, 8, 4, 16, 16)

	s, err := o.Lock(DefaultDPI)
	require.NoError(t, err)
	s.Image().Fill(pixel.CRGB16{V: 0xf81f})
	require.NoError(t, s.Release())

	s, err = o.Lock(DefaultDPI)
	require.NoError(t, err)
	assert.Equal(t, []byte(front), s.Bytes())
	require.NoError(t, s.Release())
}

func TestScenario800x480(t *testing.T) {
	const (
		width  = 800
		height = 480
		stride = 1600
	)
	front := make(Memory, stride*height)
	o := testOutput(t, new(testDevice), front, width, height, stride, 16)

	s, err := o.Lock(DefaultDPI)
	require.NoError(t, err)
	pix := s.Bytes()
	for y := 0; y < height; y++ {
		row := pix[y*s.Stride() : (y+1)*s.Stride()]
		for x := 0; x < len(row); x += 2 {
			row[x], row[x+1] = 0xe0, 0x07
		}
	}
	require.NoError(t, s.Release())

	require.Len(t, front, stride*height)
	for i := 0; i < len(front); i += 2 {
		if front[i] != 0xe0 || front[i+1] != 0x07 {
			t.Fatalf("byte %d of the front buffer is %#02x%02x, expected 0x07e0", i, front[i+1], front[i])
		}
	}
}

func TestVSyncBeforeCopy(t *testing.T) {
	var (
		front = make(Memory, 16*4)
		dev   = new(testDevice)
		o     = testOutput(t, dev, front, 8, 4, 16, 16)
	)
	var copiedBeforeVSync bool
	dev.onWait = func() {
		copiedBeforeVSync = front[0] != 0
	}

	s, err := o.Lock(DefaultDPI)
	require.NoError(t, err)
	s.Bytes()[0] = 0xff
	require.NoError(t, s.Release())

	assert.Equal(t, int32(1), dev.waits.Load())
	assert.False(t, copiedBeforeVSync)
	assert.Equal(t, byte(0xff), front[0])
}

func TestVSyncFailure(t *testing.T) {
	var (
		front = make(Memory, 16*4)
		dev   = &testDevice{err: errors.New("FBIO_WAITFORVSYNC: inappropriate ioctl for device")}
		o     = testOutput(t, dev, front, 8, 4, 16, 16)
	)

	for frame := 1; frame <= 2; frame++ {
		s, err := o.Lock(DefaultDPI)
		require.NoError(t, err)
		s.Bytes()[0] = byte(frame)
		assert.NoError(t, s.Release())
		assert.Equal(t, byte(frame), front[0])
	}

	stats := o.Stats()
	assert.Equal(t, uint64(2), stats.Frames)
	assert.Equal(t, uint64(2), stats.VSyncAdvisories)
	assert.Zero(t, stats.PresentationFailures)
}

func TestPresentationFailure(t *testing.T) {
	var (
		injected = errors.New("copy failed")
		target   = &testTarget{err: injected}
		o        = testOutput(t, new(testDevice), target, 8, 4, 16, 16)
	)

	s, err := o.Lock(DefaultDPI)
	require.NoError(t, err)
	s.Bytes()[0] = 0x01
	err = s.Release()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPresentation)
	assert.ErrorIs(t, err, injected)
	var presentErr *PresentationError
	require.True(t, errors.As(err, &presentErr))
	assert.Zero(t, target.writes)

	// The output must still be usable.
	target.err = nil
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err = o.LockContext(ctx, DefaultDPI)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), s.Bytes()[0])
	s.Bytes()[1] = 0x02
	require.NoError(t, s.Release())
	assert.Equal(t, 1, target.writes)
	require.Len(t, target.last, 16*4)
	assert.Equal(t, []byte{0x01, 0x02}, target.last[:2])

	stats := o.Stats()
	assert.Equal(t, uint64(1), stats.PresentationFailures)
	assert.Equal(t, uint64(1), stats.Frames)
}

func TestPresentationShortWrite(t *testing.T) {
	o := testOutput(t, new(testDevice), make(Memory, 16*3), 8, 4, 16, 16)

	s, err := o.Lock(DefaultDPI)
	require.NoError(t, err)
	err = s.Release()
	assert.ErrorIs(t, err, ErrPresentation)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestPresentationPanicUnlocks(t *testing.T) {
	target := &testTarget{panic: true}
	o := testOutput(t, new(testDevice), target, 8, 4, 16, 16)

	s, err := o.Lock(DefaultDPI)
	require.NoError(t, err)
	assert.Panics(t, func() { _ = s.Release() })

	target.panic = false
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err = o.LockContext(ctx, DefaultDPI)
	require.NoError(t, err)
	require.NoError(t, s.Release())
	assert.Equal(t, 1, target.writes)
	assert.Equal(t, uint64(1), o.Stats().Frames)
}

func TestReleaseOnce(t *testing.T) {
	o := testOutput(t, new(testDevice), make(Memory, 16*4), 8, 4, 16, 16)

	s, err := o.Lock(DefaultDPI)
	require.NoError(t, err)
	require.NoError(t, s.Release())
	assert.Nil(t, s.Bytes())
	assert.Nil(t, s.Image())
	assert.ErrorIs(t, s.Release(), ErrReleased)

	// The second Release must not have unlocked somebody else's surface.
	other, err := o.Lock(DefaultDPI)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Release(), ErrReleased)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = o.LockContext(ctx, DefaultDPI)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, other.Release())
}

func TestReleaseWhileReading(t *testing.T) {
	o := testOutput(t, new(testDevice), make(Memory, 16*4), 8, 4, 16, 16)

	s, err := o.Lock(DefaultDPI)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if s.Bytes() == nil || s.Image() == nil {
				return
			}
		}
	}()
	require.NoError(t, s.Release())
	<-done

	assert.Nil(t, s.Bytes())
	assert.Equal(t, 16, s.Stride())
}

func TestLockContextCancelled(t *testing.T) {
	o := testOutput(t, new(testDevice), make(Memory, 16*4), 8, 4, 16, 16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.LockContext(ctx, DefaultDPI)
	assert.ErrorIs(t, err, context.Canceled)

	s, err := o.Lock(DefaultDPI)
	require.NoError(t, err)
	require.NoError(t, s.Release())
}

func TestClose(t *testing.T) {
	var (
		dev = new(testDevice)
		o   = testOutput(t, dev, make(Memory, 16*4), 8, 4, 16, 16)
	)

	require.NoError(t, o.Close())
	require.NoError(t, o.Close())
	assert.Equal(t, int32(1), dev.closed.Load())
	assert.Nil(t, o.back)

	s, err := o.Lock(DefaultDPI)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrDisposed)

	_, err = o.LockContext(context.Background(), DefaultDPI)
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestCloseWaitsForSurface(t *testing.T) {
	front := make(Memory, 16*4)
	o := testOutput(t, new(testDevice), front, 8, 4, 16, 16)

	s, err := o.Lock(DefaultDPI)
	require.NoError(t, err)

	closed := make(chan error)
	go func() { closed <- o.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while a surface was outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	s.Bytes()[0] = 0x42
	require.NoError(t, s.Release())
	require.NoError(t, <-closed)
	assert.Equal(t, byte(0x42), front[0])
}
