package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const (
	geocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	forecastURL = "https://api.open-meteo.com/v1/forecast"
)

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

// weatherCodeText maps WMO weather codes onto speakable phrases.
var weatherCodeText = map[int]string{
	0: "clear skies", 1: "mostly clear skies", 2: "partly cloudy skies",
	3: "overcast skies", 45: "fog", 48: "freezing fog",
	51: "light drizzle", 53: "drizzle", 55: "heavy drizzle",
	61: "light rain", 63: "rain", 65: "heavy rain",
	71: "light snow", 73: "snow", 75: "heavy snow",
	80: "rain showers", 81: "rain showers", 82: "violent rain showers",
	95: "thunderstorms", 96: "thunderstorms with hail", 99: "thunderstorms with heavy hail",
}

// weather answers with the current conditions at place, defaulting to
// Bengaluru when no place was extracted from the utterance.
func (r *Runner) weather(ctx context.Context, place string) string {
	if place == "" {
		place = "Bengaluru"
	}

	lat, lon, resolved, err := r.geocode(ctx, place)
	if err != nil {
		r.logger.Warnf("weather geocode failed for %q: %v", place, err)
		return fmt.Sprintf("Sorry, I couldn't find a place called %s.", place)
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("current", "temperature_2m,weather_code,wind_speed_10m")

	var fc forecastResponse
	if err := r.getJSON(ctx, forecastURL+"?"+q.Encode(), &fc); err != nil {
		r.logger.Warnf("weather lookup failed for %q: %v", place, err)
		return "Sorry, I couldn't reach the weather service right now."
	}

	desc := weatherCodeText[fc.Current.WeatherCode]
	if desc == "" {
		desc = "mixed conditions"
	}
	return fmt.Sprintf("It's currently %.0f degrees with %s in %s.",
		fc.Current.Temperature, desc, resolved)
}

func (r *Runner) geocode(ctx context.Context, place string) (lat, lon float64, name string, err error) {
	q := url.Values{}
	q.Set("name", place)
	q.Set("count", "1")

	var gc geocodeResponse
	if err := r.getJSON(ctx, geocodeURL+"?"+q.Encode(), &gc); err != nil {
		return 0, 0, "", err
	}
	if len(gc.Results) == 0 {
		return 0, 0, "", fmt.Errorf("no geocoding result")
	}
	top := gc.Results[0]
	return top.Latitude, top.Longitude, top.Name, nil
}

func (r *Runner) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
