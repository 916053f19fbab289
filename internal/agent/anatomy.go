// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package agent

import "strings"

// regionLayers returns the Aurora 3D Atlas layer list for an anatomical
// region. Lookup is by substring so both Russian and English region names
// resolve; unrecognized regions get the generic layer set.
func regionLayers(region string) []string {
	r := strings.ToLower(region)

	switch {
	case containsAny(r, "мозг", "голов", "brain", "head"):
		return []string{"кора", "белое вещество", "базальные ганглии", "таламус", "ствол", "мозжечок", "желудочки"}
	case containsAny(r, "сердц", "грудн", "heart", "chest", "thora"):
		return []string{"перикард", "миокард", "эндокард", "клапаны", "коронарные сосуды", "лёгочные сосуды"}
	case containsAny(r, "позвон", "spine", "spinal", "vertebr"):
		return []string{"тело позвонка", "дуга", "межпозвоночный диск", "спинной мозг", "корешки", "связки"}
	case containsAny(r, "колен", "сустав", "knee", "joint"):
		return []string{"кость", "хрящ", "мениски", "связки (ПКС, ЗКС)", "синовиальная оболочка", "суставная жидкость"}
	default:
		return []string{"поверхностный слой", "средний слой", "глубокий слой", "сосуды", "нервы"}
	}
}

// anatomyModelData builds the 3D model description payload for a region.
func anatomyModelData(region, detailLevel, focus string) map[string]any {
	return map[string]any{
		"region":       region,
		"detail_level": detailLevel,
		"focus":        focus,
		"layers":       regionLayers(region),
		"note":         "Данные 3D-модели Aurora для образовательного использования",
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
