package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT subscribes to a topic carrying accelerometer payloads.
type MQTT struct {
	Broker   string
	Topic    string
	ClientID string
}

func (m *MQTT) Run(ctx context.Context, h Handler) error {
	opts := mqtt.NewClientOptions().
		AddBroker(m.Broker).
		SetClientID(m.ClientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", m.Broker, token.Error())
	}
	defer client.Disconnect(250)
	slog.Info("connected to MQTT broker", "broker", m.Broker)

	token := client.Subscribe(m.Topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		values, err := decodePayload(msg.Payload())
		if err != nil {
			slog.Debug("mqtt payload ignored", "topic", msg.Topic(), "err", err)
			return
		}
		h(Event{Values: values, Time: time.Now()})
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", m.Topic, token.Error())
	}
	slog.Info("subscribed to MQTT topic", "topic", m.Topic)

	<-ctx.Done()
	return nil
}

// decodePayload accepts {"values":[x,y,z,...]}, {"x":..,"y":..,"z":..} or a
// bare JSON array.
func decodePayload(payload []byte) ([]float64, error) {
	var arr []float64
	if err := json.Unmarshal(payload, &arr); err == nil {
		return arr, nil
	}

	var obj struct {
		Values []float64 `json:"values"`
		X      *float64  `json:"x"`
		Y      *float64  `json:"y"`
		Z      *float64  `json:"z"`
	}
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(obj.Values) > 0 {
		return obj.Values, nil
	}
	if obj.X != nil && obj.Y != nil && obj.Z != nil {
		return []float64{*obj.X, *obj.Y, *obj.Z}, nil
	}
	return nil, fmt.Errorf("payload has no x/y/z values")
}
