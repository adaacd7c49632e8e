package tone

// Tally counts what happened to the runes of one input.
type Tally struct {
	Characters int
	Tones      int
	Dropped    int
}

// Encode converts text into its tone sequence. Runes the table does not
// know are skipped. The result is never nil.
func Encode(text string) Sequence {
	seq, _ := EncodeTally(text)
	return seq
}

// EncodeOptional treats a nil input as empty text.
func EncodeOptional(text *string) Sequence {
	if text == nil {
		return Sequence{}
	}
	return Encode(*text)
}

// EncodeTally is Encode plus the rune counts for status reporting.
func EncodeTally(text string) (Sequence, Tally) {
	seq := make(Sequence, 0, len(text))
	var tally Tally
	for _, r := range text {
		tally.Characters++
		d, ok := Lookup(r)
		if !ok {
			tally.Dropped++
			continue
		}
		seq = append(seq, d)
	}
	tally.Tones = len(seq)
	return seq, tally
}
