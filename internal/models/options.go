package models

// DefaultCountry is assumed for excursions created without a country code
const DefaultCountry = "CH"

// Categories lists excursion categories in display order
var Categories = []Option{
	{Value: "HIKING", Label: "Wanderung"},
	{Value: "ADVENTURE_PARK", Label: "Erlebnisbad"},
	{Value: "AMUSEMENT_PARK", Label: "Freizeitpark"},
	{Value: "PUBLIC_POOL", Label: "Freibad"},
	{Value: "MUSEUM", Label: "Museum"},
	{Value: "PLAYGROUND", Label: "Spielplatz"},
	{Value: "ZOO", Label: "Zoo/Tierpark"},
	{Value: "RESTAURANT", Label: "Restaurant"},
	{Value: "VIEWPOINT", Label: "Aussichtspunkt"},
	{Value: "LAKE", Label: "See/Strand"},
	{Value: "CASTLE", Label: "Schloss/Burg"},
	{Value: "CLIMBING", Label: "Klettern"},
	{Value: "CYCLING", Label: "Velofahren"},
	{Value: "WINTER_SPORTS", Label: "Wintersport"},
	{Value: "OTHER", Label: "Andere"},
}

// ParkingSituations lists parking availability levels
var ParkingSituations = []Option{
	{Value: "EXCELLENT", Label: "Ausgezeichnet"},
	{Value: "GOOD", Label: "Gut"},
	{Value: "LIMITED", Label: "Begrenzt"},
	{Value: "POOR", Label: "Schlecht"},
	{Value: "NONE", Label: "Keine Parkplätze"},
}

// Countries lists the countries that have region lists
var Countries = []Option{
	{Value: "CH", Label: "Schweiz"},
	{Value: "DE", Label: "Deutschland"},
	{Value: "AT", Label: "Österreich"},
}

// Regions maps a country code to its administrative subdivisions
var Regions = map[string][]Option{
	"CH": {
		{Value: "AG", Label: "Aargau"},
		{Value: "AI", Label: "Appenzell Innerrhoden"},
		{Value: "AR", Label: "Appenzell Ausserrhoden"},
		{Value: "BE", Label: "Bern"},
		{Value: "BL", Label: "Basel-Landschaft"},
		{Value: "BS", Label: "Basel-Stadt"},
		{Value: "FR", Label: "Freiburg"},
		{Value: "GE", Label: "Genf"},
		{Value: "GL", Label: "Glarus"},
		{Value: "GR", Label: "Graubünden"},
		{Value: "JU", Label: "Jura"},
		{Value: "LU", Label: "Luzern"},
		{Value: "NE", Label: "Neuenburg"},
		{Value: "NW", Label: "Nidwalden"},
		{Value: "OW", Label: "Obwalden"},
		{Value: "SG", Label: "St. Gallen"},
		{Value: "SH", Label: "Schaffhausen"},
		{Value: "SO", Label: "Solothurn"},
		{Value: "SZ", Label: "Schwyz"},
		{Value: "TG", Label: "Thurgau"},
		{Value: "TI", Label: "Tessin"},
		{Value: "UR", Label: "Uri"},
		{Value: "VD", Label: "Waadt"},
		{Value: "VS", Label: "Wallis"},
		{Value: "ZG", Label: "Zug"},
		{Value: "ZH", Label: "Zürich"},
	},
	"DE": {
		{Value: "BW", Label: "Baden-Württemberg"},
		{Value: "BY", Label: "Bayern"},
		{Value: "BE", Label: "Berlin"},
		{Value: "BB", Label: "Brandenburg"},
		{Value: "HB", Label: "Bremen"},
		{Value: "HH", Label: "Hamburg"},
		{Value: "HE", Label: "Hessen"},
		{Value: "MV", Label: "Mecklenburg-Vorpommern"},
		{Value: "NI", Label: "Niedersachsen"},
		{Value: "NW", Label: "Nordrhein-Westfalen"},
		{Value: "RP", Label: "Rheinland-Pfalz"},
		{Value: "SL", Label: "Saarland"},
		{Value: "SN", Label: "Sachsen"},
		{Value: "ST", Label: "Sachsen-Anhalt"},
		{Value: "SH", Label: "Schleswig-Holstein"},
		{Value: "TH", Label: "Thüringen"},
	},
	"AT": {
		{Value: "B", Label: "Burgenland"},
		{Value: "K", Label: "Kärnten"},
		{Value: "NO", Label: "Niederösterreich"},
		{Value: "OO", Label: "Oberösterreich"},
		{Value: "S", Label: "Salzburg"},
		{Value: "ST", Label: "Steiermark"},
		{Value: "T", Label: "Tirol"},
		{Value: "V", Label: "Vorarlberg"},
		{Value: "W", Label: "Wien"},
	},
}

// HasOption reports whether value is one of the option values
func HasOption(options []Option, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// ValidRegion reports whether region belongs to country
func ValidRegion(country, region string) bool {
	return HasOption(Regions[country], region)
}
