package provider

import "transitmon/internal/departure"

// EFA product classes as used by VRR.
var vrrClasses = map[int]departure.TransportType{
	0:  departure.Train,  // ICE, IC, EC
	1:  departure.Train,  // RE, RB
	2:  departure.Subway, // U-Bahn
	3:  departure.Subway,
	4:  departure.Tram,
	5:  departure.Bus,
	6:  departure.Bus, // regional
	7:  departure.Bus, // express
	8:  departure.Bus, // night
	9:  departure.Ferry,
	10: departure.Taxi,
	11: departure.Bus,
	13: departure.Train,
	15: departure.Train,
	16: departure.Train,
}

// KVV runs Stadtbahn on class 3 and call-a-bus services on class 10.
var kvvClasses = map[int]departure.TransportType{
	0:  departure.Train,
	1:  departure.Train, // S-Bahn
	2:  departure.Subway,
	3:  departure.Tram, // Stadtbahn
	4:  departure.Tram,
	5:  departure.Bus,
	6:  departure.Bus,
	7:  departure.Bus,
	8:  departure.Train, // Bergbahn
	9:  departure.Ferry,
	10: departure.OnDemand,
	11: departure.Bus,
	13: departure.Train,
	15: departure.Train,
	16: departure.Train,
}

var hvvClasses = map[int]departure.TransportType{
	0:  departure.Train,
	1:  departure.Train, // S-Bahn
	2:  departure.Subway,
	3:  departure.Subway,
	4:  departure.Tram,
	5:  departure.Bus,
	6:  departure.Bus,
	7:  departure.Bus, // Schnellbus
	8:  departure.Bus,
	9:  departure.Ferry, // HADAG
	10: departure.OnDemand,
	11: departure.Bus,
	13: departure.Train,
	15: departure.Train,
	16: departure.Train,
}

var trafiklabModes = map[string]departure.TransportType{
	"BUS":   departure.Bus,
	"TRAM":  departure.Tram,
	"METRO": departure.Subway,
	"TRAIN": departure.Train,
	"FERRY": departure.Ferry,
	"SHIP":  departure.Ferry,
	"TAXI":  departure.Taxi,
}

// GTFS route_type, basic and extended.
var ntaRouteTypes = map[int]departure.TransportType{
	0:    departure.Tram,
	1:    departure.Subway,
	2:    departure.Train,
	3:    departure.Bus,
	4:    departure.Ferry,
	5:    departure.Tram,
	7:    departure.Train,
	11:   departure.Bus,
	12:   departure.Train,
	100:  departure.Train,
	400:  departure.Subway,
	700:  departure.Bus,
	715:  departure.OnDemand,
	900:  departure.Tram,
	1000: departure.Ferry,
	1500: departure.Taxi,
}

func classify[K comparable](table map[K]departure.TransportType, key K, fallback departure.TransportType) departure.TransportType {
	if t, ok := table[key]; ok {
		return t
	}
	return fallback
}
