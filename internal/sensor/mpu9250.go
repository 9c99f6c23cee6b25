package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// countsPerG is the MPU9250 accelerometer sensitivity at the default ±2g
// full-scale range.
const countsPerG = 16384.0

// MPU9250 polls an SPI-attached MPU9250 accelerometer.
type MPU9250 struct {
	imu    *mpu9250.MPU9250
	rateHz int
}

// NewMPU9250 initializes the IMU on spiDev with chip select csPin. A missing
// host, pin, SPI device or unresponsive IMU is reported as ErrNoSensor.
func NewMPU9250(spiDev, csPin string, rateHz int) (*MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: periph host init: %v", ErrNoSensor, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%w: CS pin %q not found", ErrNoSensor, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%w: SPI transport %s: %v", ErrNoSensor, spiDev, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("%w: mpu9250 device on %s: %v", ErrNoSensor, spiDev, err)
	}
	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("%w: mpu9250 init on %s: %v", ErrNoSensor, spiDev, err)
	}

	if rateHz <= 0 {
		rateHz = 20
	}
	return &MPU9250{imu: imu, rateHz: rateHz}, nil
}

func (m *MPU9250) Run(ctx context.Context, h Handler) error {
	ticker := time.NewTicker(time.Second / time.Duration(m.rateHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			values, err := m.read()
			if err != nil {
				slog.Warn("mpu9250 read failed", "err", err)
				continue
			}
			h(Event{Values: values, Time: now})
		}
	}
}

func (m *MPU9250) read() ([]float64, error) {
	ax, err := m.imu.GetAccelerationX()
	if err != nil {
		return nil, fmt.Errorf("acc X: %w", err)
	}
	ay, err := m.imu.GetAccelerationY()
	if err != nil {
		return nil, fmt.Errorf("acc Y: %w", err)
	}
	az, err := m.imu.GetAccelerationZ()
	if err != nil {
		return nil, fmt.Errorf("acc Z: %w", err)
	}
	return []float64{countsToMS2(ax), countsToMS2(ay), countsToMS2(az)}, nil
}

func countsToMS2(raw int16) float64 {
	return float64(raw) / countsPerG * StandardGravity
}
