package beacon

import (
	"fmt"
	"log/slog"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/ble"

	"tinygo.org/x/bluetooth"
)

const (
	ServiceUUID        = "7A0247E7-8E88-409B-A959-AB5092DDB03E"
	CharacteristicUUID = "82258BAA-DF72-47E8-99BC-B73D7ECD08A5"
)

// Peripheral exposes the announce service over BlueZ and advertises it.
type Peripheral struct {
	adapter   *bluetooth.Adapter
	adapterID string
	name      string
	logger    *slog.Logger
	adv       *bluetooth.Advertisement
}

func NewPeripheral(adapterID, name string, logger *slog.Logger) *Peripheral {
	if adapterID == "" {
		adapterID = "hci0"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Peripheral{
		adapter:   bluetooth.NewAdapter(adapterID),
		adapterID: adapterID,
		name:      name,
		logger:    logger,
	}
}

func uuids() (service, characteristic bluetooth.UUID, err error) {
	service, err = bluetooth.ParseUUID(ServiceUUID)
	if err != nil {
		return service, characteristic, fmt.Errorf("service uuid: %w", err)
	}
	characteristic, err = bluetooth.ParseUUID(CharacteristicUUID)
	if err != nil {
		return service, characteristic, fmt.Errorf("characteristic uuid: %w", err)
	}
	return service, characteristic, nil
}

// Start registers the service and begins advertising. onWrite receives every
// value written to the characteristic.
func (p *Peripheral) Start(onWrite func(value []byte)) error {
	serviceUUID, charUUID, err := uuids()
	if err != nil {
		return err
	}

	p.logger.Info("ble: enabling adapter", "adapter", p.adapterID)
	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: enable %s: %v", ble.ErrAdapter, p.adapterID, err)
	}

	// Add service BEFORE starting advertisement
	err = p.adapter.AddService(&bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID:  charUUID,
				Flags: bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(_ bluetooth.Connection, _ int, value []byte) {
					onWrite(value)
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("add service: %w", err)
	}

	adv := p.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    p.name,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	}); err != nil {
		return fmt.Errorf("configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("start advertisement: %w", err)
	}
	p.adv = adv

	p.logger.Info("ble: advertising", "name", p.name, "service", ServiceUUID)
	return nil
}

func (p *Peripheral) Stop() error {
	if p.adv == nil {
		return nil
	}
	if err := p.adv.Stop(); err != nil {
		return fmt.Errorf("stop advertisement: %w", err)
	}
	p.adv = nil
	return nil
}
