// Package tickmap keeps a three-level bitmap of the initialized ticks of a
// tier. Ticks are compressed to tick-MinTick; bit k of word w covers the
// compressed tick w<<8|k, bit k of block b is set while word b<<8|k is non-zero,
// and bit k of the block map is set while block k is non-zero.
package tickmap

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
)

// ErrIndexCorrupt reports a bitmap whose summary levels disagree with its
// words, or a query with nothing initialized below it. MinTick is always set,
// so either case is a bookkeeping bug.
var ErrIndexCorrupt = errors.New("tick bitmap corrupt")

// Map is the bitmap of one tier, read and written through a session.
type Map struct {
	sess   *store.Session
	tierID string
}

func New(sess *store.Session, tierID string) *Map {
	return &Map{sess: sess, tierID: tierID}
}

type coords struct {
	compressed int32
	word       int32
	block      int32
}

func locate(tick int32) (coords, error) {
	if tick < hubmath.MinTick || tick > hubmath.MaxTick {
		return coords{}, fmt.Errorf("tick %d: %w", tick, hubmath.ErrTickOutOfBounds)
	}
	c := tick - hubmath.MinTick
	return coords{compressed: c, word: c >> 8, block: c >> 16}, nil
}

func (m *Map) wordRef(index int32) (store.Kind, string) {
	return store.KindTickMapWord, model.TickMapNodeID(m.tierID, index)
}

func (m *Map) blockRef(index int32) (store.Kind, string) {
	return store.KindTickMapBlock, model.TickMapNodeID(m.tierID, index)
}

func (m *Map) blockMapRef() (store.Kind, string) {
	return store.KindTickMapBlockMap, m.tierID
}

// load returns the node or a zero node that is not yet staged.
func (m *Map) load(ctx context.Context, kind store.Kind, id string, index int32) (*model.TickMapNode, error) {
	node, ok, err := store.Get[model.TickMapNode](ctx, m.sess, kind, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		node = &model.TickMapNode{ID: id, TierID: m.tierID, Index: index, Data: new(uint256.Int)}
	}
	if node.Data == nil {
		node.Data = new(uint256.Int)
	}
	return node, nil
}

func (m *Map) data(ctx context.Context, kind store.Kind, id string, index int32) (*uint256.Int, error) {
	node, err := m.load(ctx, kind, id, index)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(node.Data), nil
}

func (m *Map) orBit(ctx context.Context, kind store.Kind, id string, index int32, bit uint) error {
	node, err := m.load(ctx, kind, id, index)
	if err != nil {
		return err
	}
	node.Data.Or(node.Data, hubmath.Bit(bit))
	store.Put(m.sess, kind, id, node)
	return nil
}

// clearBit clears bit and reports whether the node became zero.
func (m *Map) clearBit(ctx context.Context, kind store.Kind, id string, index int32, bit uint) (bool, error) {
	node, err := m.load(ctx, kind, id, index)
	if err != nil {
		return false, err
	}
	node.Data.And(node.Data, new(uint256.Int).Not(hubmath.Bit(bit)))
	store.Put(m.sess, kind, id, node)
	return node.Data.IsZero(), nil
}

// Set marks tick initialized on every level.
func (m *Map) Set(ctx context.Context, tick int32) error {
	c, err := locate(tick)
	if err != nil {
		return err
	}
	kind, id := m.wordRef(c.word)
	if err := m.orBit(ctx, kind, id, c.word, uint(c.compressed&0xff)); err != nil {
		return fmt.Errorf("set word bit: %w", err)
	}
	kind, id = m.blockRef(c.block)
	if err := m.orBit(ctx, kind, id, c.block, uint(c.word&0xff)); err != nil {
		return fmt.Errorf("set block bit: %w", err)
	}
	kind, id = m.blockMapRef()
	if err := m.orBit(ctx, kind, id, 0, uint(c.block)); err != nil {
		return fmt.Errorf("set block map bit: %w", err)
	}
	return nil
}

// Unset clears tick. Summary bits are cleared only when the level below
// them becomes empty.
func (m *Map) Unset(ctx context.Context, tick int32) error {
	c, err := locate(tick)
	if err != nil {
		return err
	}
	kind, id := m.wordRef(c.word)
	empty, err := m.clearBit(ctx, kind, id, c.word, uint(c.compressed&0xff))
	if err != nil {
		return fmt.Errorf("clear word bit: %w", err)
	}
	if !empty {
		return nil
	}
	kind, id = m.blockRef(c.block)
	empty, err = m.clearBit(ctx, kind, id, c.block, uint(c.word&0xff))
	if err != nil {
		return fmt.Errorf("clear block bit: %w", err)
	}
	if !empty {
		return nil
	}
	kind, id = m.blockMapRef()
	if _, err := m.clearBit(ctx, kind, id, 0, uint(c.block)); err != nil {
		return fmt.Errorf("clear block map bit: %w", err)
	}
	return nil
}

// IsSet reports whether tick is initialized.
func (m *Map) IsSet(ctx context.Context, tick int32) (bool, error) {
	c, err := locate(tick)
	if err != nil {
		return false, err
	}
	kind, id := m.wordRef(c.word)
	word, err := m.data(ctx, kind, id, c.word)
	if err != nil {
		return false, err
	}
	return !word.And(word, hubmath.Bit(uint(c.compressed&0xff))).IsZero(), nil
}

// NextBelowOrEqual returns the greatest initialized tick that is <= tick.
func (m *Map) NextBelowOrEqual(ctx context.Context, tick int32) (int32, error) {
	c, err := locate(tick)
	if err != nil {
		return 0, err
	}
	wordIdx, blockIdx := c.word, c.block

	kind, id := m.wordRef(wordIdx)
	wordData, err := m.data(ctx, kind, id, wordIdx)
	if err != nil {
		return 0, err
	}
	wordData.And(wordData, hubmath.LowBitsMask(uint(c.compressed&0xff)+1))

	if wordData.IsZero() {
		kind, id = m.blockRef(blockIdx)
		blockData, err := m.data(ctx, kind, id, blockIdx)
		if err != nil {
			return 0, err
		}
		blockData.And(blockData, hubmath.LowBitsMask(uint(wordIdx&0xff)))

		if blockData.IsZero() {
			kind, id = m.blockMapRef()
			blockMap, err := m.data(ctx, kind, id, 0)
			if err != nil {
				return 0, err
			}
			blockMap.And(blockMap, hubmath.LowBitsMask(uint(blockIdx)))
			if blockMap.IsZero() {
				return 0, fmt.Errorf("tier %s: nothing initialized at or below tick %d: %w", m.tierID, tick, ErrIndexCorrupt)
			}
			msb, _ := hubmath.MostSignificantBit(blockMap)
			blockIdx = int32(msb)

			kind, id = m.blockRef(blockIdx)
			if blockData, err = m.data(ctx, kind, id, blockIdx); err != nil {
				return 0, err
			}
		}

		msb, err := hubmath.MostSignificantBit(blockData)
		if err != nil {
			return 0, fmt.Errorf("tier %s block %d is empty: %w", m.tierID, blockIdx, ErrIndexCorrupt)
		}
		wordIdx = blockIdx<<8 | int32(msb)

		kind, id = m.wordRef(wordIdx)
		if wordData, err = m.data(ctx, kind, id, wordIdx); err != nil {
			return 0, err
		}
	}

	msb, err := hubmath.MostSignificantBit(wordData)
	if err != nil {
		return 0, fmt.Errorf("tier %s word %d is empty: %w", m.tierID, wordIdx, ErrIndexCorrupt)
	}
	return (wordIdx<<8 | int32(msb)) + hubmath.MinTick, nil
}
