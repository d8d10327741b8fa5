package skills

import "math/rand"

var jokes = []string{
	"Why don't scientists trust atoms? Because they make up everything!",
	"Why did the scarecrow win an award? Because he was outstanding in his field!",
	"What do you call a fake noodle? An impasta!",
	"Why don't skeletons fight each other? They don't have the guts.",
	"What did the ocean say to the beach? Nothing, it just waved.",
}

func joke() string {
	return jokes[rand.Intn(len(jokes))]
}
