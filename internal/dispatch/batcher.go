// internal/dispatch/batcher.go
package dispatch

// Pair is one deduplicated (recipient, rendered message) unit of work.
type Pair struct {
	Phone   string
	Message string
}

// MessageGroup is one gateway call: a single message going to one or
// more recipients.
type MessageGroup struct {
	Message string
	Phones  []string
}

// DefaultBatchSize bounds how many pairs go into one gateway round.
const DefaultBatchSize = 50

// Batcher accumulates pairs into fixed-size batches. Within a batch,
// recipients sharing an identical rendered message collapse into one
// MessageGroup so the gateway gets a multi-recipient call instead of
// N single ones.
type Batcher struct {
	size  int
	pairs []Pair
}

func NewBatcher(size int) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batcher{size: size}
}

// Add appends a pair and returns a full batch of message groups once
// the size threshold is reached, nil otherwise.
func (b *Batcher) Add(p Pair) []MessageGroup {
	b.pairs = append(b.pairs, p)
	if len(b.pairs) < b.size {
		return nil
	}
	return b.Flush()
}

// Flush groups whatever is pending and resets the batcher. Returns nil
// when nothing is pending.
func (b *Batcher) Flush() []MessageGroup {
	if len(b.pairs) == 0 {
		return nil
	}

	index := make(map[string]int, len(b.pairs))
	var groups []MessageGroup
	for _, p := range b.pairs {
		i, ok := index[p.Message]
		if !ok {
			i = len(groups)
			index[p.Message] = i
			groups = append(groups, MessageGroup{Message: p.Message})
		}
		groups[i].Phones = append(groups[i].Phones, p.Phone)
	}

	b.pairs = b.pairs[:0]
	return groups
}
