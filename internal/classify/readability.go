package classify

import (
	"strings"
	"unicode"
)

// FleschKincaidGrade computes the Flesch-Kincaid grade level of text using
// a heuristic syllable counter. It runs locally so the readability check
// never costs a model call.
func FleschKincaidGrade(text string) float64 {
	sentences := countSentences(text)
	words := splitWords(text)
	if sentences == 0 || len(words) == 0 {
		return 0
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	wordsPerSentence := float64(len(words)) / float64(sentences)
	syllablesPerWord := float64(syllables) / float64(len(words))
	grade := 0.39*wordsPerSentence + 11.8*syllablesPerWord - 15.59
	if grade < 0 {
		grade = 0
	}
	return grade
}

// GradeForAge maps a child's age to the highest acceptable grade level.
// Reading targets are deliberately generous: spoken answers tolerate a
// higher grade than printed text.
func GradeForAge(age int) float64 {
	switch {
	case age <= 4:
		return 2.0
	case age <= 6:
		return 4.0
	case age <= 8:
		return 6.0
	default:
		return 8.0
	}
}

func countSentences(text string) int {
	count := 0
	inSentence := false
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if inSentence {
				count++
				inSentence = false
			}
		default:
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				inSentence = true
			}
		}
	}
	if inSentence {
		count++
	}
	return count
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// countSyllables approximates syllables as vowel groups, with the usual
// adjustments for silent trailing e and a one-syllable floor.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}
