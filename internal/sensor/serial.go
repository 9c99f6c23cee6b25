package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

// Serial reads "x,y,z" lines from a serial-attached accelerometer.
type Serial struct {
	Port     string
	BaudRate uint
}

func (s *Serial) Run(ctx context.Context, h Handler) error {
	opts := serial.OpenOptions{
		PortName:        s.Port,
		BaudRate:        s.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return fmt.Errorf("open serial %s: %w", s.Port, err)
	}
	defer port.Close()
	slog.Info("serial port opened", "port", s.Port, "baud", s.BaudRate)

	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()

	err = readLines(port, h)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readLines feeds every parseable line of r to h until r is exhausted.
func readLines(r io.Reader, h Handler) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		values, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		h(Event{Values: values, Time: time.Now()})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read serial: %w", err)
	}
	return nil
}

// parseLine splits a comma or whitespace separated line into floats. Lines
// with fewer than three numbers are rejected.
func parseLine(line string) ([]float64, bool) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) < 3 {
		return nil, false
	}
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}
