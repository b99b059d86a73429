package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"rvsoc/pkg/peripherals"
	"rvsoc/pkg/soc"
)

// Game fronts the machine with a live display: the VGA framebuffer at
// 2× scale with a status line, keyboard going to the UART receive
// FIFO and number keys to the switches.
type Game struct {
	m          *soc.Machine
	screen     *ebiten.Image // reused 320×240 canvas
	perFrame   int
	runErr     error
	showStatus bool
}

func (g *Game) Update() error {
	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 0x80 {
			g.m.UART.PushByte(byte(r))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.m.UART.PushByte('\r')
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		g.m.UART.PushByte(8)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.showStatus = !g.showStatus
	}
	// Keys 1-8 toggle the switch inputs.
	for i := 0; i < 8; i++ {
		if inpututil.IsKeyJustPressed(ebiten.KeyDigit1 + ebiten.Key(i)) {
			g.m.GPIO.SetSwitches(g.m.GPIO.Switches() ^ (1 << i))
		}
	}

	if g.runErr != nil {
		return nil // freeze the display on a fault
	}
	for i := 0; i < g.perFrame; i++ {
		if g.m.Halted() {
			break
		}
		if err := g.m.Step(); err != nil {
			g.runErr = err
			log.Printf("fault: %v", err)
			break
		}
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.screen == nil {
		g.screen = ebiten.NewImage(peripherals.VGAWidth, peripherals.VGAHeight)
	}
	g.screen.WritePixels(g.m.VGA.FramebufferRGBA())

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(2, 2)
	screen.DrawImage(g.screen, op)

	if g.showStatus {
		status := fmt.Sprintf("pc=%08x %s cyc=%d leds=%02x",
			g.m.Core.PC, g.m.Core.State, g.m.Cycles, g.m.GPIO.LEDs)
		if g.runErr != nil {
			status += "  FAULT"
		} else if g.m.Halted() {
			status += "  HALT"
		}
		text.Draw(screen, status, basicfont.Face7x13, 4, 472, color.White)
	}
}

func (g *Game) Layout(_, _ int) (int, int) {
	return 2 * peripherals.VGAWidth, 2 * peripherals.VGAHeight
}

func main() {
	var (
		binPath  = flag.String("bin", "", "flat binary image to run")
		entry    = flag.Uint64("entry", soc.LoadBase, "load/entry address")
		perFrame = flag.Int("cycles-per-frame", 200000, "machine cycles per video frame")
	)
	flag.Parse()
	if *binPath == "" {
		log.Fatal("-bin is required")
	}

	image, err := os.ReadFile(*binPath)
	if err != nil {
		log.Fatalf("read image: %v", err)
	}

	m := soc.NewMachine()
	m.UART.Output = os.Stdout
	// Vsync tracks the frame pacing of the host display.
	m.VGA.FramePeriod = *perFrame / 2
	if err := m.LoadImageAt(image, uint32(*entry)); err != nil {
		log.Fatalf("load image: %v", err)
	}

	ebiten.SetWindowSize(2*peripherals.VGAWidth, 2*peripherals.VGAHeight)
	ebiten.SetWindowTitle("rvsoc")

	game := &Game{m: m, perFrame: *perFrame, showStatus: true}
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
