package labels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAt(t *testing.T) {
	table, err := NewTable([]string{"Tomato___healthy", "Tomato___Late_blight"})
	require.NoError(t, err)

	label, ok := table.At(1)
	assert.True(t, ok)
	assert.Equal(t, "Tomato___Late_blight", label)

	_, ok = table.At(2)
	assert.False(t, ok)
	_, ok = table.At(-1)
	assert.False(t, ok)
}

func TestNewTableRejectsEmpty(t *testing.T) {
	_, err := NewTable(nil)
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = NewTable([]string{"a", " "})
	assert.Error(t, err)
}

func TestTableIsImmutable(t *testing.T) {
	names := []string{"a", "b"}
	table, err := NewTable(names)
	require.NoError(t, err)

	names[0] = "changed"
	got := table.Names()
	got[1] = "changed"

	label, _ := table.At(0)
	assert.Equal(t, "a", label)
	label, _ = table.At(1)
	assert.Equal(t, "b", label)
}

func TestMappingLookup(t *testing.T) {
	m := NewMapping(map[string]string{"Tomato___Late_blight": "tomato-late-blight"})

	assert.Equal(t, "tomato-late-blight", m.Lookup("Tomato___Late_blight"))
	assert.Equal(t, UnknownDisease, m.Lookup("Tomato___healthy"))
	assert.Equal(t, UnknownDisease, m.Lookup(UnknownClass))
	assert.Equal(t, 1, m.Len())
}

func TestIsHealthy(t *testing.T) {
	cases := map[string]bool{
		"Tomato___healthy":       true,
		"Pepper__bell___Healthy": true,
		"HEALTHY":                true,
		"Tomato___Late_blight":   false,
		UnknownClass:             false,
		"":                       false,
	}

	for label, want := range cases {
		assert.Equal(t, want, IsHealthy(label), label)
	}
}

func TestPresetsShareTableButNotMapping(t *testing.T) {
	collapsed, err := Preset(PresetPlantVillage15)
	require.NoError(t, err)
	crop, err := Preset(PresetPlantVillage15Crop)
	require.NoError(t, err)

	assert.Equal(t, 15, collapsed.Table.Len())
	assert.Equal(t, collapsed.Table.Names(), crop.Table.Names())

	assert.Equal(t, "healthy", collapsed.Mapping.Lookup("Tomato___healthy"))
	assert.Equal(t, "tomato-healthy", crop.Mapping.Lookup("Tomato___healthy"))
	assert.Equal(t, UnknownDisease, collapsed.Mapping.Lookup("Tomato___Target_Spot"))
	assert.Equal(t, "tomato-target-spot", crop.Mapping.Lookup("Tomato___Target_Spot"))

	assert.Empty(t, crop.UnmappedLabels())
	assert.Len(t, collapsed.UnmappedLabels(), 5)
}

func TestPresetMappingsOnlyReferenceTableLabels(t *testing.T) {
	for _, name := range PresetNames() {
		set, err := Preset(name)
		require.NoError(t, err)

		for label := range set.Mapping.Entries() {
			assert.True(t, set.Table.Contains(label), "%s: %s", name, label)
		}
	}
}

func TestUnknownPreset(t *testing.T) {
	_, err := Preset("imagenet")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tomato.yaml")
	content := `
labels:
  - Tomato___healthy
  - Tomato___Late_blight
mapping:
  Tomato___Late_blight: tomato-late-blight
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	set, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "tomato", set.Name)
	assert.Equal(t, []string{"Tomato___healthy", "Tomato___Late_blight"}, set.Table.Names())
	assert.Equal(t, "tomato-late-blight", set.Mapping.Lookup("Tomato___Late_blight"))
}

func TestLoadFileJSONKeepsLabelCase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.json")
	content := `{"name": "pv", "labels": ["Potato___Early_blight"], "mapping": {"Potato___Early_blight": "potato-early-blight"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	set, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "pv", set.Name)
	assert.Equal(t, "potato-early-blight", set.Mapping.Lookup("Potato___Early_blight"))
}

func TestLoadFileRejectsEmptyLabels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mapping: {}\n"), 0o644))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestLoadPrefersFile(t *testing.T) {
	set, err := Load(PresetPlantVillage15Crop, "")
	require.NoError(t, err)
	assert.Equal(t, PresetPlantVillage15Crop, set.Name)

	_, err = Load(PresetPlantVillage15, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
