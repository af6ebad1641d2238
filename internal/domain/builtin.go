package domain

// builtinCities seeds the import when neither the download nor a local copy
// of the CSV is available.
var builtinCities = []string{
	"Los Angeles",
	"San Diego",
	"San Jose",
	"San Francisco",
	"Fresno",
	"Sacramento",
	"Long Beach",
	"Oakland",
	"Bakersfield",
	"Anaheim",
	"Riverside",
	"Stockton",
	"Irvine",
	"Chula Vista",
	"Fremont",
	"San Bernardino",
	"Modesto",
	"Oxnard",
	"Fontana",
	"Moreno Valley",
	"Glendale",
	"Huntington Beach",
	"Santa Clarita",
	"Garden Grove",
	"Santa Rosa",
	"Oceanside",
	"Rancho Cucamonga",
	"Ontario",
	"Elk Grove",
	"Corona",
	"Lancaster",
	"Palmdale",
	"Hayward",
	"Salinas",
	"Pomona",
	"Sunnyvale",
	"Escondido",
	"Torrance",
	"Pasadena",
	"Orange",
	"Fullerton",
}

// BuiltinCities returns a copy of the hardcoded list of major California cities.
func BuiltinCities() []string {
	return append([]string(nil), builtinCities...)
}
