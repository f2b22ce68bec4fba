package model

// Weather is the normalized shape returned by the weather lookup proxy.
type Weather struct {
	Location    WeatherLocation  `json:"location"`
	Temperature WeatherReading   `json:"temperature"`
	FeelsLike   WeatherReading   `json:"feelsLike"`
	WindSpeed   WeatherWind      `json:"windSpeed"`
	Condition   WeatherCondition `json:"condition"`
	UVIndex     float64          `json:"uvIndex"`
}

type WeatherLocation struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Region    string  `json:"region"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Localtime string  `json:"localtime"`
}

type WeatherReading struct {
	Celsius    float64 `json:"celsius"`
	Fahrenheit float64 `json:"fahrenheit"`
}

type WeatherWind struct {
	KPH float64 `json:"kph"`
	MPH float64 `json:"mph"`
}

type WeatherCondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}
