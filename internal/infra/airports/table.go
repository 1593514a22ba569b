package airports

// builtin covers the busiest US hubs plus major international gateways.
var builtin = []Airport{
	{"ATL", 33.6407, -84.4277},
	{"BOS", 42.3656, -71.0096},
	{"BWI", 39.1774, -76.6684},
	{"CLT", 35.2144, -80.9473},
	{"DCA", 38.8512, -77.0402},
	{"DEN", 39.8561, -104.6737},
	{"DFW", 32.8998, -97.0403},
	{"DTW", 42.2162, -83.3554},
	{"EWR", 40.6895, -74.1745},
	{"FLL", 26.0742, -80.1506},
	{"HNL", 21.3187, -157.9225},
	{"IAD", 38.9531, -77.4565},
	{"IAH", 29.9902, -95.3368},
	{"JFK", 40.6413, -73.7781},
	{"LAS", 36.0840, -115.1537},
	{"LAX", 33.9416, -118.4085},
	{"LGA", 40.7769, -73.8740},
	{"MCO", 28.4312, -81.3081},
	{"MDW", 41.7868, -87.7522},
	{"MIA", 25.7959, -80.2870},
	{"MSP", 44.8848, -93.2223},
	{"ORD", 41.9742, -87.9073},
	{"PDX", 45.5898, -122.5951},
	{"PHL", 39.8744, -75.2424},
	{"PHX", 33.4342, -112.0116},
	{"SAN", 32.7338, -117.1933},
	{"SEA", 47.4502, -122.3088},
	{"SFO", 37.6213, -122.3790},
	{"SLC", 40.7899, -111.9791},
	{"TPA", 27.9755, -82.5332},
	{"AMS", 52.3105, 4.7683},
	{"CDG", 49.0097, 2.5479},
	{"DXB", 25.2532, 55.3657},
	{"FRA", 50.0379, 8.5622},
	{"HND", 35.5494, 139.7798},
	{"LHR", 51.4700, -0.4543},
	{"MEX", 19.4361, -99.0719},
	{"SIN", 1.3644, 103.9915},
	{"YYZ", 43.6777, -79.6248},
}
