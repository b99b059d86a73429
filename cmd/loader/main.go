package main

import (
	"flag"
	"io"
	"log"
	"net"
	"os"

	"rvsoc/pkg/boot"
)

// Host-side image loader: speaks the serial download protocol to a
// console instance listening on TCP, or to a serial device node.
func main() {
	var (
		addr = flag.String("addr", "", "TCP address of the target's serial port")
		dev  = flag.String("dev", "", "serial device path (alternative to -addr)")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: loader [-addr host:port | -dev path] image.bin")
	}

	image, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read image: %v", err)
	}

	var port io.ReadWriteCloser
	switch {
	case *addr != "":
		conn, err := net.Dial("tcp", *addr)
		if err != nil {
			log.Fatalf("dial %s: %v", *addr, err)
		}
		port = conn
	case *dev != "":
		f, err := os.OpenFile(*dev, os.O_RDWR, 0)
		if err != nil {
			log.Fatalf("open %s: %v", *dev, err)
		}
		port = f
	default:
		log.Fatal("one of -addr or -dev is required")
	}
	defer port.Close()

	if err := boot.Send(port, image, os.Stderr); err != nil {
		log.Fatalf("download failed: %v", err)
	}
	log.Printf("downloaded %d bytes", len(image))
}
