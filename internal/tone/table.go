package tone

import (
	"slices"
	"unicode"
)

const (
	letterMS      = 200
	digitMS       = 150
	spaceMS       = 150
	punctuationMS = 120
)

// Diatonic C-major steps starting at E3, one per letter A..Z.
var letterHz = [26]int{
	165, 175, 196, 220, 247, 262, 294, 330, 349, 392, 440, 494, 523,
	587, 659, 698, 784, 880, 988, 1047, 1175, 1319, 1397, 1568, 1760, 1976,
}

var punctuation = []struct {
	char     rune
	hz       int
	waveform Waveform
}{
	{'.', 1000, Triangle},
	{',', 1050, Triangle},
	{'?', 1100, Triangle},
	{'!', 1150, Triangle},
	{'%', 1200, Sawtooth},
	{'$', 1250, Sawtooth},
	{'@', 1300, Sawtooth},
	{'"', 1350, Sawtooth},
	{'\'', 1400, Sawtooth},
}

// table is built once and never written after init.
var table = buildTable()

func buildTable() map[rune]Descriptor {
	t := make(map[rune]Descriptor, 26+10+1+len(punctuation))
	for i, hz := range letterHz {
		t['A'+rune(i)] = Descriptor{Frequency: hz, Duration: letterMS, Waveform: Sine}
	}
	for d := 0; d <= 9; d++ {
		t['0'+rune(d)] = Descriptor{Frequency: 300 + 50*d, Duration: digitMS, Waveform: Square}
	}
	t[' '] = Descriptor{Frequency: 0, Duration: spaceMS, Waveform: Sine}
	for _, p := range punctuation {
		t[p.char] = Descriptor{Frequency: p.hz, Duration: punctuationMS, Waveform: p.waveform}
	}
	return t
}

// Lookup returns the descriptor for r, folding it to upper case first.
func Lookup(r rune) (Descriptor, bool) {
	d, ok := table[unicode.ToUpper(r)]
	return d, ok
}

// Alphabet lists every character the table maps, in code point order.
func Alphabet() []rune {
	chars := make([]rune, 0, len(table))
	for r := range table {
		chars = append(chars, r)
	}
	slices.Sort(chars)
	return chars
}
