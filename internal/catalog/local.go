package catalog

import "github.com/example/lexera/pkg/models"

// Local returns the built-in word list used when the remote catalog is
// unavailable. It covers the easy and medium tiers.
func Local() []models.WordRecord {
	return []models.WordRecord{
		{ID: "word1", Word: "cat", Options: []string{"cat", "kat", "cet", "caat"}, Image: "https://source.unsplash.com/featured/?cat", Difficulty: models.Easy},
		{ID: "word2", Word: "dog", Options: []string{"dog", "dogg", "doog", "dag"}, Image: "https://source.unsplash.com/featured/?dog", Difficulty: models.Easy},
		{ID: "word3", Word: "run", Options: []string{"run", "runn", "roon", "rann"}, Image: "https://source.unsplash.com/featured/?running", Difficulty: models.Easy},
		{ID: "word4", Word: "jump", Options: []string{"jump", "jamp", "jomp", "jumb"}, Image: "https://source.unsplash.com/featured/?jumping", Difficulty: models.Easy},
		{ID: "word5", Word: "play", Options: []string{"play", "plai", "pley", "pllay"}, Image: "https://source.unsplash.com/featured/?playing", Difficulty: models.Easy},
		{ID: "word6", Word: "apple", Options: []string{"apple", "aple", "appel", "apel"}, Image: "https://source.unsplash.com/featured/?apple", Difficulty: models.Medium},
		{ID: "word7", Word: "banana", Options: []string{"banana", "bananna", "banena", "bananaa"}, Image: "https://source.unsplash.com/featured/?banana", Difficulty: models.Medium},
		{ID: "word8", Word: "orange", Options: []string{"orange", "orenge", "orang", "oranj"}, Image: "https://source.unsplash.com/featured/?orange", Difficulty: models.Medium},
	}
}
