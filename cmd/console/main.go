package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"net"
	"os"

	"rvsoc/pkg/boot"
	"rvsoc/pkg/monitor"
	"rvsoc/pkg/soc"
)

func main() {
	var (
		binPath  = flag.String("bin", "", "flat binary image to load at the load base")
		entry    = flag.Uint64("entry", soc.LoadBase, "load/entry address for -bin")
		cycles   = flag.Uint64("cycles", 0, "cycle cap (0 = run until halt)")
		snapshot = flag.String("snapshot", "", "write a snapshot archive here on exit")
		restore  = flag.String("restore", "", "resume from a snapshot archive")
		monAddr  = flag.String("monitor", "", "serve the HTTP monitor on this address")
		serial   = flag.String("serial", "", "listen on this TCP address and boot over serial")
	)
	flag.Parse()

	m := soc.NewMachine()
	m.UART.Output = os.Stdout

	switch {
	case *restore != "":
		if err := m.RestoreFrom(*restore); err != nil {
			log.Fatalf("restore %s: %v", *restore, err)
		}
		log.Printf("resumed at pc=%#08x cycle=%d", m.Core.PC, m.Cycles)

	case *binPath != "":
		image, err := os.ReadFile(*binPath)
		if err != nil {
			log.Fatalf("read image: %v", err)
		}
		if err := m.LoadImageAt(image, uint32(*entry)); err != nil {
			log.Fatalf("load image: %v", err)
		}
		log.Printf("loaded %d bytes at %#08x", len(image), uint32(*entry))

	case *serial != "":
		if err := bootOverSerial(m, *serial); err != nil {
			log.Fatalf("serial boot: %v", err)
		}

	default:
		log.Fatal("one of -bin, -restore or -serial is required")
	}

	var srv *monitor.Server
	if *monAddr != "" {
		srv = monitor.NewServer(m)
		go func() {
			if err := srv.ListenAndServe(*monAddr); err != nil {
				log.Fatalf("monitor: %v", err)
			}
		}()
	}

	n, err := run(m, srv, *cycles)
	switch {
	case err != nil:
		log.Printf("fault after %d cycles: %v", n, err)
	case m.Halted():
		log.Printf("halt after %d cycles at pc=%#08x", n, m.Core.PC)
	default:
		log.Printf("cycle cap reached (%d)", n)
	}

	if *snapshot != "" {
		if err := m.SaveTo(*snapshot); err != nil {
			log.Fatalf("snapshot: %v", err)
		}
		log.Printf("snapshot written to %s", *snapshot)
	}
	if err != nil {
		os.Exit(1)
	}
}

// run steps the machine, taking the monitor lock in batches when the
// HTTP surface is live so both sides see consistent state.
func run(m *soc.Machine, srv *monitor.Server, cap uint64) (uint64, error) {
	if srv == nil {
		return m.Run(cap)
	}
	const batch = 10000
	var total uint64
	for cap == 0 || total < cap {
		chunk := uint64(batch)
		if cap != 0 && cap-total < chunk {
			chunk = cap - total
		}
		srv.Lock()
		n, err := m.Run(chunk)
		srv.Unlock()
		total += n
		if err != nil {
			return total, err
		}
		if n < chunk { // halted
			break
		}
	}
	return total, nil
}

// bootOverSerial accepts one connection and runs the boot ROM against
// it: the peer is expected to speak the loader protocol.
func bootOverSerial(m *soc.Machine, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Printf("waiting for loader on %s", ln.Addr())

	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	m.UART.Output = io.MultiWriter(os.Stdout, conn)

	// Feed everything the loader sends into the receive FIFO.
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			for _, b := range buf[:n] {
				m.UART.PushByte(b)
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Printf("serial: %v", err)
				}
				return
			}
		}
	}()

	entry, err := boot.Boot(m)
	if err != nil {
		return err
	}
	log.Printf("booted, entry %#08x", entry)
	return nil
}
