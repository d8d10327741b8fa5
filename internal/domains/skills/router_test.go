package skills

import "testing"

func TestResolveWeatherWithPlace(t *testing.T) {
	got := Resolve("What's the weather in Paris?")
	if got.Name != IntentWeather {
		t.Fatalf("got intent %q, want weather", got.Name)
	}
	if got.Arg != "Paris" {
		t.Errorf("got place %q, want Paris", got.Arg)
	}
}

func TestResolveWeatherWithoutPlace(t *testing.T) {
	got := Resolve("How hot is it today?")
	if got.Name != IntentWeather {
		t.Fatalf("got intent %q, want weather", got.Name)
	}
	if got.Arg != "" {
		t.Errorf("got place %q, want empty", got.Arg)
	}
}

func TestResolveWeatherMultiWordPlace(t *testing.T) {
	got := Resolve("Give me the forecast in New York City")
	if got.Name != IntentWeather {
		t.Fatalf("got intent %q, want weather", got.Name)
	}
	if got.Arg != "New York City" {
		t.Errorf("got place %q, want New York City", got.Arg)
	}
}

func TestResolveLeadingPlaceFollowUp(t *testing.T) {
	// A bare "in/at <place>" utterance is a weather follow-up even
	// without a weather keyword.
	cases := map[string]string{
		"In Paris?":    "Paris",
		"At Tokyo":     "Tokyo",
		"in new delhi": "new delhi",
	}
	for text, place := range cases {
		got := Resolve(text)
		if got.Name != IntentWeather {
			t.Errorf("Resolve(%q) = %q, want weather", text, got.Name)
			continue
		}
		if got.Arg != place {
			t.Errorf("Resolve(%q) place = %q, want %q", text, got.Arg, place)
		}
	}
}

func TestResolveLeadingPrepositionWithClauseStaysGeneral(t *testing.T) {
	for _, text := range []string{"In my opinion, you are wrong.", "At 5pm remind me"} {
		if got := Resolve(text); got.Name != IntentGeneral {
			t.Errorf("Resolve(%q) = %q, want general", text, got.Name)
		}
	}
}

func TestResolveNews(t *testing.T) {
	for _, text := range []string{"What's in the news today?", "Read me the headlines"} {
		if got := Resolve(text); got.Name != IntentNews {
			t.Errorf("Resolve(%q) = %q, want news", text, got.Name)
		}
	}
}

func TestResolveJoke(t *testing.T) {
	for _, text := range []string{"Tell me a joke", "Say something funny"} {
		if got := Resolve(text); got.Name != IntentJoke {
			t.Errorf("Resolve(%q) = %q, want joke", text, got.Name)
		}
	}
}

func TestResolveGeneral(t *testing.T) {
	for _, text := range []string{"", "How do I bake bread?", "What time is it?"} {
		got := Resolve(text)
		if got.Name != IntentGeneral {
			t.Errorf("Resolve(%q) = %q, want general", text, got.Name)
		}
		if got.IsSkill() {
			t.Errorf("Resolve(%q) reported as skill", text)
		}
	}
}

func TestWeatherWinsOverOtherKeywords(t *testing.T) {
	// Ordered predicates: weather is tested first.
	got := Resolve("Any news on the weather in Tokyo?")
	if got.Name != IntentWeather {
		t.Errorf("got %q, want weather (first matching predicate wins)", got.Name)
	}
}

func TestJokeIsLocal(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		text := joke()
		if text == "" {
			t.Fatal("empty joke")
		}
		seen[text] = true
	}
	for text := range seen {
		found := false
		for _, j := range jokes {
			if j == text {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("joke %q not in the fixed list", text)
		}
	}
}
