package routing

// Sub-option ids.
const (
	OptRadiators          = "radiators"
	OptFancoils           = "fancoils"
	OptUnderfloor         = "underfloor"
	OptUnderfloorFancoils = "underfloor_fancoils"
	// OptCompleteWithHeatPump is the bundle offer that brings in the heat pump partner.
	OptCompleteWithHeatPump = "complete_hp"
	OptWaterWater           = "water_water"
	OptAirWater             = "air_water"
)

var (
	boskovic = Contact{
		Kind:     Contractor,
		Person:   "Igor Bošković",
		Phone:    "+381 60 3932566",
		Email:    "boskovicigor83@gmail.com",
		Telegram: "@IgorNS1983",
	}
	microma = Contact{
		Kind:    Manufacturer,
		Company: "Microma",
		Person:  "Borislav Dakić",
		Phone:   "+381 63 582068",
		Email:   "office@microma.rs",
		Website: "https://microma.rs",
	}
	instalM = Contact{
		Kind:     Contractor,
		Company:  "Instal M",
		Person:   "Ivan Mujović",
		Phone:    "+382 67 423 237",
		Email:    "office@instalm.me",
		Telegram: "@ivanmujovic",
	}
)

func opt(id string) SubOption {
	return SubOption{ID: id, LabelKey: "option." + id}
}

func heatingOptions(partner *Contact) []SubOption {
	bundle := opt(OptCompleteWithHeatPump)
	bundle.Partner = partner
	return []SubOption{
		opt(OptRadiators),
		opt(OptFancoils),
		opt(OptUnderfloor),
		opt(OptUnderfloorFancoils),
		bundle,
	}
}

// Default returns the production routing table.
func Default() *Table {
	serbiaPartner := microma
	return NewTable(
		Entry{
			Country:    Serbia,
			Service:    Heating,
			Contact:    boskovic,
			SubOptions: heatingOptions(&serbiaPartner),
		},
		Entry{
			Country:    Serbia,
			Service:    HeatPump,
			Contact:    microma,
			SubOptions: []SubOption{opt(OptWaterWater), opt(OptAirWater)},
		},
		// Instal M installs and supplies heat pumps in Montenegro, so its bundle has no separate partner.
		Entry{
			Country:    Montenegro,
			Service:    Heating,
			Contact:    instalM,
			SubOptions: heatingOptions(nil),
		},
		Entry{
			Country:    Montenegro,
			Service:    HeatPump,
			Contact:    instalM,
			SubOptions: []SubOption{opt(OptAirWater)},
		},
	)
}
