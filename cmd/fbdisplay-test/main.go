package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	display "github.com/BeatGlow/fbdisplay"
	"github.com/BeatGlow/fbdisplay/draw"
	"github.com/BeatGlow/fbdisplay/framebuffer"
)

var (
	deviceFlag    string
	backlightFlag string
	rotateFlag    string
	framesFlag    int
	intervalFlag  time.Duration
	dpiFlag       float64
	debugFlag     bool
)

var rootCmd = &cobra.Command{
	Use:          filepath.Base(os.Args[0]),
	Short:        "draw a test pattern on a Linux framebuffer",
	Long:         "draw an animated test pattern on a Linux framebuffer device using vsync-gated double buffering",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&deviceFlag, "device", "d", "/dev/fb0", "framebuffer device")
	flags.StringVar(&backlightFlag, "bl", "", "backlight GPIO pin (e.g. GPIO19)")
	flags.StringVar(&rotateFlag, "rotate", "", "display rotation (0 or 180)")
	flags.IntVarP(&framesFlag, "frames", "n", 0, "number of frames to draw (0 draws until interrupted)")
	flags.DurationVar(&intervalFlag, "interval", 50*time.Millisecond, "time between frames")
	flags.Float64Var(&dpiFlag, "dpi", framebuffer.DefaultDPI.X, "display resolution hint")
	flags.BoolVar(&debugFlag, "debug", display.Debug, "enable debug logging")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fatal(err)
	}
}

func run(ctx context.Context) error {
	level := slog.LevelInfo
	if debugFlag {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	rotation, err := parseRotation(rotateFlag)
	if err != nil {
		return err
	}

	config := &display.Config{Rotation: rotation}
	if backlightFlag != "" {
		if _, err = host.Init(); err != nil {
			return err
		}
		if config.Backlight = gpioreg.ByName(backlightFlag); config.Backlight == nil {
			return errors.Errorf("invalid backlight pin %q", backlightFlag)
		}
	}

	out, err := framebuffer.Open(deviceFlag)
	if err != nil {
		return err
	}
	screen, err := framebuffer.NewScreen(out, config)
	if err != nil {
		closeLogged(deviceFlag, out)
		return err
	}
	defer closeLogged(deviceFlag, screen)
	screen.DPI = framebuffer.DPI{X: dpiFlag, Y: dpiFlag}
	slog.Info("using display", "display", screen.String(), "rotation", rotation.String())

	if err = screen.Show(true); err != nil {
		return err
	}

	var (
		face   = draw.DefaultFace(dpiFlag)
		ticker = time.NewTicker(intervalFlag)
		r      = screen.Bounds()
		start  = time.Now()
	)
	defer face.Close()
	defer ticker.Stop()

	fmt.Println("hit control-c to stop...")
loop:
	for frame := 0; framesFlag == 0 || frame < framesFlag; frame++ {
		testPattern(screen, r, frame)

		label := fmt.Sprintf("%s %s frame %d", deviceFlag, out.Mode(), frame)
		dot := image.Pt(8, r.Max.Y-8)
		draw.RoundedBox(screen, draw.TextBounds(face, dot, label).Inset(-3), 3, color.Black)
		draw.Text(screen, dot, face, label, color.White)

		if err = screen.Refresh(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}
	}

	stats := out.Stats()
	elapsed := time.Since(start)
	slog.Info("done",
		"frames", stats.Frames,
		"fps", float64(stats.Frames)/elapsed.Seconds(),
		"vsync_advisories", stats.VSyncAdvisories,
		"presentation_failures", stats.PresentationFailures,
	)
	return nil
}

var shade = image.NewUniform(color.NRGBA{A: 0x80})

// testPattern draws a moving gradient inside a box around the edge of r.
func testPattern(dst draw.Image, r image.Rectangle, offset int) {
	for y := 1; y < r.Max.Y-1; y++ {
		for x := 1; x < r.Max.X-1; x++ {
			dst.Set(x, y, color.RGBA{
				R: uint8(x + y + offset),
				G: uint8(x - y + offset),
				B: uint8(x + y - offset),
				A: 0xff,
			})
		}
	}
	draw.Rectangle(dst, r, color.White)

	box := image.Rect(r.Dx()/4, r.Dy()/4, r.Dx()*3/4, r.Dy()*3/4)
	draw.Draw(dst, box, shade, image.Point{}, draw.Over)
	draw.RoundedRectangle(dst, box, 8, color.White)
	draw.Line(dst, box.Min, box.Max.Sub(image.Pt(1, 1)), color.White)
}

func parseRotation(s string) (display.Rotation, error) {
	switch s {
	case "", "no", "0":
		return display.NoRotation, nil
	case "180", "flip":
		return display.Rotate180, nil
	default:
		return display.NoRotation, errors.Errorf("invalid rotation %q specified", s)
	}
}

// closeLogged closes c, reporting a failure as a warning.
func closeLogged(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("close failed", "display", name, "error", err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
