package labels

import (
	"fmt"
	"sort"
)

const (
	PresetPlantVillage15     = "plantvillage-15"
	PresetPlantVillage15Crop = "plantvillage-15-crop"
)

// plantVillage15 is the class order the MobileNetV2 artifact was trained with.
var plantVillage15 = []string{
	"Pepper__bell___Bacterial_spot",
	"Pepper__bell___healthy",
	"Potato___Early_blight",
	"Potato___Late_blight",
	"Potato___healthy",
	"Tomato___Bacterial_spot",
	"Tomato___Early_blight",
	"Tomato___Late_blight",
	"Tomato___Leaf_Mold",
	"Tomato___Septoria_leaf_spot",
	"Tomato___Spider_mites_Two-spotted_spider_mite",
	"Tomato___Target_Spot",
	"Tomato___Tomato_Yellow_Leaf_Curl_Virus",
	"Tomato___Tomato_mosaic_virus",
	"Tomato___healthy",
}

// Healthy labels collapse into a single "healthy" identifier. Several
// disease classes are intentionally unmapped.
var plantVillage15Collapsed = map[string]string{
	"Pepper__bell___Bacterial_spot": "pepper-bacterial-spot",
	"Potato___Early_blight":         "potato-early-blight",
	"Potato___Late_blight":          "potato-late-blight",
	"Tomato___Bacterial_spot":       "tomato-bacterial-spot",
	"Tomato___Early_blight":         "tomato-early-blight",
	"Tomato___Late_blight":          "tomato-late-blight",
	"Tomato___Leaf_Mold":            "tomato-leaf-mold",
	"Potato___healthy":              "healthy",
	"Tomato___healthy":              "healthy",
	"Pepper__bell___healthy":        "healthy",
}

// Every label maps to a disease catalogue id, healthy ones per crop.
var plantVillage15Crop = map[string]string{
	"Pepper__bell___Bacterial_spot":                 "pepper-bacterial-spot",
	"Pepper__bell___healthy":                        "pepper-healthy",
	"Potato___Early_blight":                         "potato-early-blight",
	"Potato___Late_blight":                          "potato-late-blight",
	"Potato___healthy":                              "potato-healthy",
	"Tomato___Bacterial_spot":                       "tomato-bacterial-spot",
	"Tomato___Early_blight":                         "tomato-early-blight",
	"Tomato___Late_blight":                          "tomato-late-blight",
	"Tomato___Leaf_Mold":                            "tomato-leaf-mold",
	"Tomato___Septoria_leaf_spot":                   "tomato-septoria-leaf-spot",
	"Tomato___Spider_mites_Two-spotted_spider_mite": "tomato-spider-mites",
	"Tomato___Target_Spot":                          "tomato-target-spot",
	"Tomato___Tomato_Yellow_Leaf_Curl_Virus":        "tomato-yellow-leaf-curl",
	"Tomato___Tomato_mosaic_virus":                  "tomato-mosaic-virus",
	"Tomato___healthy":                              "tomato-healthy",
}

var presets = map[string]struct {
	names []string
	ids   map[string]string
}{
	PresetPlantVillage15:     {plantVillage15, plantVillage15Collapsed},
	PresetPlantVillage15Crop: {plantVillage15, plantVillage15Crop},
}

// Preset returns one of the built-in label sets.
func Preset(name string) (Set, error) {
	p, ok := presets[name]
	if !ok {
		return Set{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return NewSet(name, p.names, p.ids)
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
