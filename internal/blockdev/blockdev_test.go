package blockdev

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) *Inventory {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	inv, err := Parse(data)
	require.NoError(t, err)
	return inv
}

func strPtr(s string) *string { return &s }

func TestParseSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want uint64
	}{
		{"2T", 2 * 1024 * 1024 * 1024 * 1024},
		{"512M", 512 * 1024 * 1024},
		{"30G", 30 * 1024 * 1024 * 1024},
		{"4K", 4096},
		{"100", 100},
		{"21474836480", 21474836480},
		{"bogus", 0},
		{"", 0},
		{"476.9G", 0},
		{"2t", 0},
		{"G", 0},
		{"16777215T", 16777215 << 40},
		{"16777216T", 0},
		{"18446744073709551615", 18446744073709551615},
		{"18446744073709551616", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseSize(tt.in))
		})
	}
}

func TestDevice_IsBusy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		device Device
		want   bool
	}{
		{"bare disk without mountpoints", Device{Type: "disk"}, false},
		{"disk with single null mountpoint", Device{Type: "disk", Mountpoints: []*string{nil}}, false},
		{"disk mounted", Device{Type: "disk", Mountpoints: []*string{strPtr("/data")}}, true},
		{"disk with two null mountpoints", Device{Type: "disk", Mountpoints: []*string{nil, nil}}, true},
		{"partitioned disk", Device{Type: "disk", Children: []Device{{Name: "sda1", Type: "part"}}}, true},
		{"loop device", Device{Type: "loop"}, true},
		{"partition", Device{Type: "part"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.device.IsBusy())
		})
	}
}

func TestParse_CloudVM(t *testing.T) {
	t.Parallel()
	inv := loadFixture(t, "lsblk_cloud_vm.json")

	require.Len(t, inv.Devices, 5)
	sda := inv.Devices[1]
	assert.Equal(t, "sda", sda.Name)
	assert.Equal(t, "8:0", sda.MajMin)
	assert.Len(t, sda.Children, 2)
	assert.True(t, inv.Devices[0].ReadOnly)
	assert.True(t, inv.Devices[4].Removable)
	assert.Equal(t, "/dev/sdb", inv.Devices[2].Path())
}

func TestParse_LegacyFormat(t *testing.T) {
	t.Parallel()
	inv := loadFixture(t, "lsblk_legacy.json")

	require.Len(t, inv.Devices, 2)
	assert.False(t, inv.Devices[0].Removable)
	require.Len(t, inv.Devices[1].Mountpoints, 1)
	assert.Equal(t, "/data", *inv.Devices[1].Mountpoints[0])

	dev, ok := inv.MountedAt("/data")
	require.True(t, ok)
	assert.Equal(t, "vdb", dev.Name)

	_, ok = inv.BiggestUnmounted()
	assert.False(t, ok)
}

func TestParse_NumericSize(t *testing.T) {
	t.Parallel()
	inv, err := Parse([]byte(`{"blockdevices":[{"name":"sdb","size":1073741824,"type":"disk","rm":0,"ro":1}]}`))
	require.NoError(t, err)

	assert.Equal(t, uint64(1073741824), inv.Devices[0].Bytes())
	assert.True(t, inv.Devices[0].ReadOnly)
	assert.False(t, inv.Devices[0].Removable)
}

func TestInventory_BiggestUnmounted_ByteSizes(t *testing.T) {
	t.Parallel()
	// Without -b lsblk prints these as 931.5G and 1.8T, which parse to 0.
	inv, err := Parse([]byte(`{"blockdevices":[
		{"name":"sdb","size":1000204886016,"type":"disk","mountpoints":[null]},
		{"name":"sdc","size":2000398934016,"type":"disk","mountpoints":[null]}
	]}`))
	require.NoError(t, err)

	dev, ok := inv.BiggestUnmounted()
	require.True(t, ok)
	assert.Equal(t, "sdc", dev.Name)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("lsblk: command not found"))
	require.Error(t, err)

	_, err = Parse([]byte(`{"blockdevices":[{"name":"sdb","rm":"maybe"}]}`))
	require.Error(t, err)
}

func TestInventory_MountedAt(t *testing.T) {
	t.Parallel()
	inv := loadFixture(t, "lsblk_cloud_vm.json")

	dev, ok := inv.MountedAt("/snap/core20/2182")
	require.True(t, ok)
	assert.Equal(t, "loop0", dev.Name)

	// partitions are children and are not searched
	_, ok = inv.MountedAt("/")
	assert.False(t, ok)

	_, ok = inv.MountedAt("/data")
	assert.False(t, ok)
}

func TestInventory_MountedAt_FirstMatchWins(t *testing.T) {
	t.Parallel()
	inv := &Inventory{Devices: []Device{
		{Name: "sdb", Type: "disk", Mountpoints: []*string{strPtr("/data")}},
		{Name: "sdc", Type: "disk", Mountpoints: []*string{strPtr("/data")}},
	}}

	dev, ok := inv.MountedAt("/data")
	require.True(t, ok)
	assert.Equal(t, "sdb", dev.Name)
}

func TestInventory_BiggestUnmounted(t *testing.T) {
	t.Parallel()
	inv := loadFixture(t, "lsblk_cloud_vm.json")

	dev, ok := inv.BiggestUnmounted()
	require.True(t, ok)
	assert.Equal(t, "sdb", dev.Name)

	names := []string{}
	for _, c := range inv.Candidates() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"sdb", "sdc"}, names)
}

func TestInventory_BiggestUnmounted_TieGoesToFirst(t *testing.T) {
	t.Parallel()
	inv := &Inventory{Devices: []Device{
		{Name: "sdx", Type: "disk", Size: "bogus"},
		{Name: "sdb", Type: "disk", Size: "1024G"},
		{Name: "sdc", Type: "disk", Size: "1T"},
		{Name: "sdd", Type: "disk", Size: "1T", Mountpoints: []*string{nil}},
	}}

	for i := 0; i < 3; i++ {
		dev, ok := inv.BiggestUnmounted()
		require.True(t, ok)
		assert.Equal(t, "sdb", dev.Name)
	}
}

func TestInventory_BiggestUnmounted_UnparsableSizeStillEligible(t *testing.T) {
	t.Parallel()
	inv := &Inventory{Devices: []Device{{Name: "sdx", Type: "disk", Size: "bogus"}}}

	dev, ok := inv.BiggestUnmounted()
	require.True(t, ok)
	assert.Equal(t, "sdx", dev.Name)
}

func TestFlexBool(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]bool{
		`true`: true, `false`: false, `1`: true, `0`: false,
		`"1"`: true, `"0"`: false, `"true"`: true, `null`: false,
	} {
		var b flexBool
		require.NoError(t, json.Unmarshal([]byte(in), &b), in)
		assert.Equal(t, want, bool(b), in)
	}
}
