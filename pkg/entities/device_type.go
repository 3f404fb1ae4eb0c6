package entities

// DeviceType is the closed set of edge gateway device classes on the
// ceramics line. The integer values are the ones the gateways send in the
// deviceType field of celima/data payloads.
type DeviceType int

const (
	DeviceTypePH1            DeviceType = 1
	DeviceTypePH2            DeviceType = 2
	DeviceTypeEntradaSecador DeviceType = 3
	DeviceTypeSalidaSecador  DeviceType = 4
	DeviceTypeEsmalte        DeviceType = 5
	DeviceTypeEntradaHorno   DeviceType = 6
	DeviceTypeSalidaHorno    DeviceType = 7
	DeviceTypeCalidad        DeviceType = 8
)

// DeviceTypeFromInt resolves a raw deviceType value. The second return is
// false for 0 or anything outside 1..8, in which case the caller routes the
// message to the default processor.
func DeviceTypeFromInt(v int) (DeviceType, bool) {
	if v < int(DeviceTypePH1) || v > int(DeviceTypeCalidad) {
		return 0, false
	}
	return DeviceType(v), true
}

func (d DeviceType) String() string {
	switch d {
	case DeviceTypePH1:
		return "PH_1"
	case DeviceTypePH2:
		return "PH_2"
	case DeviceTypeEntradaSecador:
		return "Entrada_secador"
	case DeviceTypeSalidaSecador:
		return "Salida_secador"
	case DeviceTypeEsmalte:
		return "Esmalte"
	case DeviceTypeEntradaHorno:
		return "Entrada_horno"
	case DeviceTypeSalidaHorno:
		return "Salida_horno"
	case DeviceTypeCalidad:
		return "Calidad"
	}
	return "Unknown"
}

// Slug returns the device segment of the derived ISA-95 topic.
func (d DeviceType) Slug() string {
	switch d {
	case DeviceTypePH1:
		return "prensa_hidraulica1"
	case DeviceTypePH2:
		return "prensa_hidraulica2"
	case DeviceTypeEntradaSecador:
		return "entrada_secador"
	case DeviceTypeSalidaSecador:
		return "salida_secador"
	case DeviceTypeEsmalte:
		return "esmalte"
	case DeviceTypeEntradaHorno:
		return "entrada_horno"
	case DeviceTypeSalidaHorno:
		return "salida_horno"
	case DeviceTypeCalidad:
		return "calidad"
	}
	return ""
}
