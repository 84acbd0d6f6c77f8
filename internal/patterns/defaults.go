package patterns

import "go.uber.org/zap"

// Defaults returns the built-in pattern set used when no pattern
// document is configured or the configured one cannot be loaded.
func Defaults(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)

	tagDefaults := []TagPattern{
		{
			Name:             "default_pump",
			Pattern:          `\bP[-_]?\d{1,6}[A-Z]?\b`,
			Description:      "Default pump pattern",
			EquipmentType:    EquipmentPump,
			Examples:         []string{"P-101", "P101A", "P-10001"},
			Priority:         50,
			IndustryStandard: "ISA",
		},
		{
			Name:             "default_valve",
			Pattern:          `\bV[-_]?\d{1,6}[A-Z]?\b`,
			Description:      "Default valve pattern",
			EquipmentType:    EquipmentValve,
			Examples:         []string{"V-101", "V101A", "V-10001"},
			Priority:         50,
			IndustryStandard: "ISA",
		},
		{
			Name:             "default_tank",
			Pattern:          `\bT[-_]?\d{1,6}[A-Z]?\b`,
			Description:      "Default tank pattern",
			EquipmentType:    EquipmentTank,
			Examples:         []string{"T-301", "T301"},
			Priority:         50,
			IndustryStandard: "ISA",
		},
		{
			Name:             "default_instrument",
			Pattern:          `\b[A-Z]{2,3}[-_]?\d{1,6}[A-Z]?\b`,
			Description:      "Default instrument pattern",
			EquipmentType:    EquipmentInstrument,
			InstrumentType:   InstrumentGeneric,
			Examples:         []string{"FIC-101", "PIC-201", "TIC-10001"},
			Priority:         40,
			IndustryStandard: "ISA",
		},
	}
	for i := range tagDefaults {
		if err := r.Register(&tagDefaults[i]); err != nil {
			logger.Error("default tag pattern rejected", zap.Error(err))
		}
	}

	docDefaults := []DocumentPattern{
		{
			Name:             "default_pid",
			Pattern:          `\bP&?ID[-_]?\d{4,6}[-_]?[A-Z0-9]*\b`,
			Description:      "Default P&ID pattern",
			DocumentType:     DocumentPID,
			Examples:         []string{"P&ID-2001", "PID_2001_A"},
			Priority:         30,
			RequiredElements: []string{"drawing_number"},
			OptionalElements: []string{"revision"},
		},
		{
			Name:             "default_drawing",
			Pattern:          `\b[A-Z]{2,4}[-_]?\d{4,8}[-_]?[A-Z0-9]*\b`,
			Description:      "Default engineering drawing pattern",
			DocumentType:     DocumentGeneric,
			Examples:         []string{"ENG-2001", "DWG_123456"},
			Priority:         80,
			RequiredElements: []string{"drawing_number"},
		},
	}
	for i := range docDefaults {
		if err := r.RegisterDocument(&docDefaults[i]); err != nil {
			logger.Error("default document pattern rejected", zap.Error(err))
		}
	}

	return r
}
