// internal/device/descriptor_test.go
package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/fieldbus-bridge/internal/command"
	"github.com/tamzrod/fieldbus-bridge/internal/registers"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
	"github.com/tamzrod/fieldbus-bridge/internal/transport/mock"
)

func TestDescriptor_Fields(t *testing.T) {
	assert.Equal(t,
		[]string{"address", "voltage", "alarmThreshold"},
		testMeter().Fields())
}

func TestDescriptor_Validate(t *testing.T) {
	require.NoError(t, testDrive().Validate())
	require.NoError(t, testMeter().Validate())

	cases := map[string]func(d *Descriptor){
		"no type":   func(d *Descriptor) { d.Type = "" },
		"bad path":  func(d *Descriptor) { d.Path = "drive" },
		"no groups": func(d *Descriptor) { d.Groups = nil },
		"probe on modbus": func(d *Descriptor) {
			d.Probe = gapProbe()
		},
		"dup field across groups": func(d *Descriptor) {
			d.Groups[1].Fields[0].Name = "busVoltage"
		},
		"reserved field": func(d *Descriptor) {
			d.Groups[1].Fields[0].Name = AddressField
		},
		"dup command": func(d *Descriptor) {
			d.Commands = append(d.Commands, command.Entry{Name: "free_stop"})
		},
		"dup setting": func(d *Descriptor) {
			d.Settings = []Setting{{Key: "x"}, {Key: "x"}}
		},
		"rebind other key": func(d *Descriptor) {
			d.Settings = []Setting{{Key: "x", Rebind: true}}
		},
		"empty range": func(d *Descriptor) {
			d.Settings = []Setting{{Key: "x", Min: 10, Max: 5}}
		},
		"unknown kind": func(d *Descriptor) { d.Kind = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := testDrive()
			mutate(&d)
			assert.Error(t, d.Validate())
		})
	}
}

func TestDescriptor_ValidateStream(t *testing.T) {
	d := Descriptor{Type: "ranger", Path: "/ranger", Kind: KindStream, Probe: gapProbe()}
	require.NoError(t, d.Validate())

	d.Groups = []registers.Group{testDrive().Groups[0]}
	assert.Error(t, d.Validate())

	d = Descriptor{Type: "ranger", Path: "/ranger", Kind: KindStream}
	assert.Error(t, d.Validate())
}

func TestRunProvision(t *testing.T) {
	desc := testDrive()
	desc.Provision = &Provision{
		Unit: 0,
		Steps: []Step{
			{Address: 0x0008, Value: 0b0101, Label: "Set control register"},
			{Address: 0x0003, Value: 0x0003},
			{Address: 0x0002, UseAddress: true, Label: "Set address to %d"},
		},
		Notice: "Please restart the device",
	}
	bank := mock.NewBank("")
	var lines []string

	err := RunProvision(context.Background(), desc, bank, 0x0F, func(s string) { lines = append(lines, s) })

	require.NoError(t, err)
	assert.Equal(t, []mock.Write{
		{Unit: 0, Address: 0x0008, Value: 0b0101},
		{Unit: 0, Address: 0x0003, Value: 0x0003},
		{Unit: 0, Address: 0x0002, Value: 0x0F},
	}, bank.Writes())
	assert.Equal(t, []string{"Set control register", "Set address to 15", "Please restart the device"}, lines)
}

func TestRunProvision_BroadcastTimeoutTolerated(t *testing.T) {
	desc := testDrive()
	desc.Provision = &Provision{Unit: 0, Steps: []Step{{Address: 1, Value: 1}}}
	bank := mock.NewBank("")
	bank.FailWrites(transport.ErrTimeout)

	require.NoError(t, RunProvision(context.Background(), desc, bank, 1, nil))

	desc.Provision.Unit = 0x0F
	assert.Error(t, RunProvision(context.Background(), desc, bank, 1, nil))
}

func TestRunProvision_Missing(t *testing.T) {
	assert.Error(t, RunProvision(context.Background(), testDrive(), mock.NewBank(""), 1, nil))
}
