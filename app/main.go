package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/sirupsen/logrus"

	"github.com/kumarnitish378/secureFileTransfer-FTDI/constants"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/link"
	"github.com/kumarnitish378/secureFileTransfer-FTDI/session"
)

func main() {
	args := argparse.NewParser("usbbridge", "Reliable file transfer over a USB-UART serial bridge")

	mode := args.Selector("m", "mode", []string{"send", "recv", "both"},
		&argparse.Options{Required: true, Help: "Operating mode"})
	device := args.String("p", "port", &argparse.Options{Required: false,
		Help: "Serial device (e.g. COM3 or /dev/ttyUSB0)"})
	baud := args.Int("b", "baud", &argparse.Options{Required: false,
		Help: "Baud rate", Default: constants.DEFAULT_BAUD_RATE})
	outdir := args.String("o", "outdir", &argparse.Options{Required: false,
		Help: "Output folder for received files", Default: "."})
	files := args.StringList("f", "file", &argparse.Options{Required: false,
		Help: "File to send (repeatable)"})
	timeout := args.Int("t", "timeout", &argparse.Options{Required: false,
		Help: "Link read timeout in milliseconds", Default: 1000})
	tcpListen := args.String("", "tcp-listen", &argparse.Options{Required: false,
		Help: "Listen for a TCP peer on this address instead of using a serial device"})
	tcpConnect := args.String("", "tcp-connect", &argparse.Options{Required: false,
		Help: "Connect to a TCP peer at this address instead of using a serial device"})
	dscp := args.Int("d", "dscp", &argparse.Options{Required: false,
		Help: "DSCP field for QoS (TCP link only)", Default: constants.DEFAULT_DSCP})
	verbose := args.Flag("v", "verbose", &argparse.Options{Help: "Enable debug logging"})

	err := args.Parse(os.Args)

	if err != nil {
		fmt.Print(args.Usage(err))
		os.Exit(1)
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	readTimeout := time.Duration(*timeout) * time.Millisecond

	bridge, err := openBridge(*device, *baud, *tcpListen, *tcpConnect, *dscp, readTimeout)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	defer bridge.Close()

	bridge.OnProgress(renderProgress)

	switch *mode {
	case "send":
		if len(*files) == 0 {
			fmt.Println("Nothing to send. Provide at least one --file.")
			os.Exit(1)
		}
		if err := bridge.SendFiles(*files); err != nil {
			os.Exit(2)
		}
	case "recv":
		if err := bridge.StartReceiveLoop(*outdir); err != nil {
			fmt.Println(err.Error())
			os.Exit(1)
		}
		fmt.Println("Receiving. Press Ctrl+C to stop.")
		waitForInterrupt()
		bridge.StopReceiveLoop()
	case "both":
		if err := bridge.StartReceiveLoop(*outdir); err != nil {
			fmt.Println(err.Error())
			os.Exit(1)
		}
		if len(*files) > 0 {
			bridge.SendFiles(*files)
		}
		fmt.Println("Receiver running in background. Press Ctrl+C to stop.")
		waitForInterrupt()
		bridge.StopReceiveLoop()
	}
}

// openBridge picks the link flavor from the flags: a serial device by
// default, or a TCP peer for hardware-free runs of the same protocol.
func openBridge(device string, baud int, tcpListen, tcpConnect string, dscp int, timeout time.Duration) (*session.Bridge, error) {
	switch {
	case tcpListen != "":
		port, err := link.ListenTCP(withDefaultPort(tcpListen), dscp, timeout)
		if err != nil {
			return nil, err
		}
		return session.New(port, timeout), nil
	case tcpConnect != "":
		port, err := link.DialTCP(withDefaultPort(tcpConnect), dscp, timeout)
		if err != nil {
			return nil, err
		}
		return session.New(port, timeout), nil
	case device != "":
		return session.Open(device, baud, timeout)
	}
	return nil, fmt.Errorf("no link selected: provide --port, --tcp-listen or --tcp-connect")
}

// withDefaultPort appends the default TCP port when the address omits one.
func withDefaultPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err != nil {
		return address + ":" + strconv.Itoa(constants.DEFAULT_TCP_PORT)
	}
	return address
}

func waitForInterrupt() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Println()
}
