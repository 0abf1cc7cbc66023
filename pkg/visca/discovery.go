// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"context"
	"fmt"
)

// Broadcast network messages
var (
	addressSetFrame = []byte{0x88, 0x30, 0x01, Terminator}
	ifClearFrame    = []byte{0x88, 0x01, 0x00, 0x01, Terminator}
)

// AssignAddresses broadcasts Address Set on the daisy chain. Each camera
// takes the address it receives and passes on the next one, so the frame
// coming back carries the count of cameras plus one. The interface buffers
// are cleared afterwards.
func AssignAddresses(ctx context.Context, t *Transport) (int, error) {
	var count int
	err := t.Exchange(ctx, func(x *Exchange) error {
		if err := x.WriteFrame(addressSetFrame); err != nil {
			return err
		}
		frame, status, err := x.ReadFrame()
		if err != nil {
			return err
		}
		if status != ReadTerminated {
			return fmt.Errorf("address set: %w", ErrTimeout)
		}
		if len(frame) != 4 || frame[0] != 0x88 || frame[1] != 0x30 || frame[2] < 1 || int(frame[2]) > MaxAddress+1 {
			return fmt.Errorf("address set: %w (reply % X)", ErrMalformedReply, frame)
		}
		count = int(frame[2]) - 1

		if err := x.WriteFrame(ifClearFrame); err != nil {
			return err
		}
		// the clear comes back once it has passed every camera
		if _, status, err := x.ReadFrame(); err != nil {
			return err
		} else if status != ReadTerminated {
			t.log.Debug().Msg("no echo of IF_Clear")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	t.log.Info().Int("cameras", count).Msg("addresses assigned")
	return count, nil
}
