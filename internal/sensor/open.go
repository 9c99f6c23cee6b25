package sensor

import (
	"fmt"
	"os"

	"github.com/jwulff/orient/internal/config"
	"github.com/jwulff/orient/internal/daemon"
)

// Open builds the source described by cfg. It returns ErrNoSensor (possibly
// wrapped) when nothing is configured or the device is not present.
func Open(cfg config.SourceConfig) (Source, error) {
	switch cfg.Kind {
	case config.SourceNone, "":
		return nil, ErrNoSensor

	case config.SourceMock:
		return &Mock{RateHz: cfg.RateHz}, nil

	case config.SourceSocket:
		path := cfg.Socket.Path
		if path == "" {
			path = daemon.SocketPath()
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: sensor daemon socket %s: %v", ErrNoSensor, path, err)
		}
		return &Socket{Path: path, Sensor: cfg.Socket.Sensor, RateHz: cfg.RateHz}, nil

	case config.SourceMQTT:
		return &MQTT{Broker: cfg.MQTT.Broker, Topic: cfg.MQTT.Topic, ClientID: cfg.MQTT.ClientID}, nil

	case config.SourceSerial:
		if _, err := os.Stat(cfg.Serial.Port); err != nil {
			return nil, fmt.Errorf("%w: serial port %s: %v", ErrNoSensor, cfg.Serial.Port, err)
		}
		return &Serial{Port: cfg.Serial.Port, BaudRate: cfg.Serial.BaudRate}, nil

	case config.SourceMPU9250:
		imu, err := NewMPU9250(cfg.MPU9250.SPIDevice, cfg.MPU9250.CSPin, cfg.RateHz)
		if err != nil {
			return nil, err
		}
		return imu, nil
	}

	return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
}
