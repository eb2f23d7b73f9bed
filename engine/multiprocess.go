// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"encoding/binary"
	"math/big"

	"github.com/luxfi/rmm/adapter"
	"github.com/luxfi/rmm/errs"
	"github.com/luxfi/rmm/pool"
)

// Instruction opcodes. The upper nibble of a frame's leading byte carries
// the use_max flag; the lower nibble is one of these.
const (
	OpCreatePair byte = 1
	OpCreatePool byte = 2
	OpAllocate   byte = 3
	OpDeallocate byte = 4
	OpSwap       byte = 5
	OpClaim      byte = 6
)

const (
	useMaxFlag  = 0x10
	opcodeMask  = 0x0F
	jumpMarker  = 0xFF
	frameLenLen = 2 // 2-byte big-endian length prefix per frame
)

// instruction is one decoded multiprocess frame.
type instruction struct {
	opcode byte
	useMax bool
	body   []byte
}

// decodeMultiprocess splits payload into its instruction frames. A payload
// beginning with jumpMarker is a "jump" envelope: a 2-byte frame count
// followed by that many length-prefixed frames. Any other payload is a
// single instruction with no length prefix, filling the entire payload.
func decodeMultiprocess(payload []byte) ([]instruction, error) {
	if len(payload) == 0 {
		return nil, errs.ErrInvalidInstruction
	}
	if payload[0] != jumpMarker {
		ins, err := decodeFrame(payload)
		if err != nil {
			return nil, err
		}
		return []instruction{ins}, nil
	}

	if len(payload) < 3 {
		return nil, errs.ErrInvalidInstruction
	}
	count := binary.BigEndian.Uint16(payload[1:3])
	cursor := 3
	out := make([]instruction, 0, count)
	for i := uint16(0); i < count; i++ {
		if cursor+frameLenLen > len(payload) {
			return nil, errs.ErrInvalidInstruction
		}
		frameLen := int(binary.BigEndian.Uint16(payload[cursor : cursor+frameLenLen]))
		cursor += frameLenLen
		if cursor+frameLen > len(payload) {
			return nil, errs.ErrInvalidInstruction
		}
		ins, err := decodeFrame(payload[cursor : cursor+frameLen])
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
		cursor += frameLen
	}
	return out, nil
}

func decodeFrame(frame []byte) (instruction, error) {
	if len(frame) < 1 {
		return instruction{}, errs.ErrInvalidInstruction
	}
	return instruction{
		opcode: frame[0] & opcodeMask,
		useMax: frame[0]&useMaxFlag != 0,
		body:   frame[1:],
	}, nil
}

func readUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, errs.ErrInvalidInstruction
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}

func readUint64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, errs.ErrInvalidInstruction
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

func readAddress(b []byte) (adapter.Address, []byte, error) {
	var a adapter.Address
	if len(b) < len(a) {
		return a, nil, errs.ErrInvalidInstruction
	}
	copy(a[:], b[:len(a)])
	return a, b[len(a):], nil
}

func readUint256Big(b []byte) (*big.Int, []byte, error) {
	const width = 32
	if len(b) < width {
		return nil, nil, errs.ErrInvalidInstruction
	}
	return new(big.Int).SetBytes(b[:width]), b[width:], nil
}

// Multiprocess decodes payload into one or more instructions and runs all
// of them inside a single settlement window: debits and credits across
// instructions are netted at the one Settle() call that closes the batch.
func (e *Engine) Multiprocess(caller adapter.Address, payload []byte) error {
	instructions, err := decodeMultiprocess(payload)
	if err != nil {
		return err
	}
	return e.dispatch(caller, func() error {
		for _, ins := range instructions {
			if err := e.runInstruction(caller, ins); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) runInstruction(caller adapter.Address, ins instruction) error {
	body := ins.body
	switch ins.opcode {
	case OpCreatePair:
		asset, body, err := readAddress(body)
		if err != nil {
			return err
		}
		quote, body, err := readAddress(body)
		if err != nil {
			return err
		}
		if len(body) < 2 {
			return errs.ErrInvalidInstruction
		}
		_, err = e.doCreatePair(caller, asset, quote, body[0], body[1])
		return err

	case OpCreatePool:
		pairRef, body, err := readUint32(body)
		if err != nil {
			return err
		}
		controllerAddr, body, err := readAddress(body)
		if err != nil {
			return err
		}
		var controller *adapter.Address
		if controllerAddr != (adapter.Address{}) {
			controller = &controllerAddr
		}
		priorityFeeBps, body, err := readUint32(body)
		if err != nil {
			return err
		}
		feeBps, body, err := readUint32(body)
		if err != nil {
			return err
		}
		volatilityBps, body, err := readUint32(body)
		if err != nil {
			return err
		}
		durationSeconds, body, err := readUint64(body)
		if err != nil {
			return err
		}
		jitSeconds, body, err := readUint64(body)
		if err != nil {
			return err
		}
		maxPrice, body, err := readUint256Big(body)
		if err != nil {
			return err
		}
		price, _, err := readUint256Big(body)
		if err != nil {
			return err
		}
		_, err = e.doCreatePool(caller, pool.CreatePoolParams{
			PairRef:         pairRef,
			Controller:      controller,
			PriorityFeeBps:  priorityFeeBps,
			FeeBps:          feeBps,
			VolatilityBps:   volatilityBps,
			DurationSeconds: durationSeconds,
			JitSeconds:      jitSeconds,
			MaxPrice:        maxPrice,
			Price:           price,
		})
		return err

	case OpAllocate:
		poolID, body, err := readUint64(body)
		if err != nil {
			return err
		}
		delta, _, err := readUint256Big(body)
		if err != nil {
			return err
		}
		return e.doAllocate(caller, poolID, ins.useMax, delta)

	case OpDeallocate:
		poolID, body, err := readUint64(body)
		if err != nil {
			return err
		}
		delta, _, err := readUint256Big(body)
		if err != nil {
			return err
		}
		return e.doDeallocate(caller, poolID, ins.useMax, delta)

	case OpSwap:
		poolID, body, err := readUint64(body)
		if err != nil {
			return err
		}
		if len(body) < 1 {
			return errs.ErrInvalidInstruction
		}
		sellAsset := body[0] != 0
		body = body[1:]
		input, body, err := readUint256Big(body)
		if err != nil {
			return err
		}
		minOutput, _, err := readUint256Big(body)
		if err != nil {
			return err
		}
		_, err = e.doSwap(caller, SwapInput{
			PoolID:      poolID,
			SellAsset:   sellAsset,
			UseMax:      ins.useMax,
			InputAmount: input,
			MinOutput:   minOutput,
		})
		return err

	case OpClaim:
		poolID, body, err := readUint64(body)
		if err != nil {
			return err
		}
		assetReq, body, err := readUint256Big(body)
		if err != nil {
			return err
		}
		quoteReq, _, err := readUint256Big(body)
		if err != nil {
			return err
		}
		return e.doClaim(caller, poolID, assetReq, quoteReq)

	default:
		return errs.ErrInvalidInstruction
	}
}
