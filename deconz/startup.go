package deconz

import (
	"bytes"
	"context"
	"time"
)

// reconcileStartup reads the four network parameters, writes back
// whichever don't match the desired configuration, and cycles the radio
// offline/online if anything changed. Writes tolerate failure with a
// debug log; no parameter change aborts start.
func (a *Adapter) reconcileStartup(ctx context.Context) (string, error) {
	changed := false

	if a.networkOpts.PANID != 0 {
		cur, err := a.driver.ReadParameter(ctx, ParamNetworkPANID)
		if err != nil {
			a.log.Debug().Err(err).Msg("deconz: read PAN_ID failed")
		} else if u16le(cur) != a.networkOpts.PANID {
			buf := make([]byte, 2)
			putU16le(buf, a.networkOpts.PANID)
			if err := a.driver.WriteParameter(ctx, ParamNetworkPANID, buf); err != nil {
				a.log.Debug().Err(err).Msg("deconz: write PAN_ID failed")
			} else {
				changed = true
			}
		}
	}

	var zeroExt [8]byte
	if a.networkOpts.ExtendedPANID != zeroExt {
		cur, err := a.driver.ReadParameter(ctx, ParamAPSExtPANID)
		if err != nil {
			a.log.Debug().Err(err).Msg("deconz: read APS_EXT_PAN_ID failed")
		} else if !bytes.Equal(cur, a.networkOpts.ExtendedPANID[:]) {
			if err := a.driver.WriteParameter(ctx, ParamAPSExtPANID, a.networkOpts.ExtendedPANID[:]); err != nil {
				a.log.Debug().Err(err).Msg("deconz: write APS_EXT_PAN_ID failed")
			} else {
				changed = true
			}
		}
	}

	if ch, ok := a.networkOpts.desiredChannel(); ok {
		cur, err := a.driver.ReadParameter(ctx, ParamCurrentChannel)
		if err != nil {
			a.log.Debug().Err(err).Msg("deconz: read CHANNEL failed")
		} else if len(cur) == 0 || cur[0] != ch {
			mask := channelMask(ch)
			buf := []byte{byte(mask), byte(mask >> 8), byte(mask >> 16), byte(mask >> 24)}
			if err := a.driver.WriteParameter(ctx, ParamChannelMask, buf); err != nil {
				a.log.Debug().Err(err).Msg("deconz: write CHANNEL_MASK failed")
			} else {
				changed = true
			}
		}
	}

	var zeroKey [16]byte
	if a.networkOpts.NetworkKey != zeroKey {
		cur, err := a.driver.ReadParameter(ctx, ParamNetworkKey)
		if err != nil {
			a.log.Debug().Err(err).Msg("deconz: read NETWORK_KEY failed")
		} else if !bytes.Equal(cur, a.networkOpts.NetworkKey[:]) {
			if err := a.driver.WriteParameter(ctx, ParamNetworkKey, a.networkOpts.NetworkKey[:]); err != nil {
				a.log.Debug().Err(err).Msg("deconz: write NETWORK_KEY failed")
			} else {
				changed = true
			}
		}
	}

	if changed {
		if err := a.driver.ChangeNetworkState(ctx, NetworkOffline); err != nil {
			a.log.Debug().Err(err).Msg("deconz: change network state OFFLINE failed")
		}
		sleep(ctx, 2*time.Second)
		if err := a.driver.ChangeNetworkState(ctx, NetworkConnected); err != nil {
			a.log.Debug().Err(err).Msg("deconz: change network state CONNECTED failed")
		}
		sleep(ctx, 2*time.Second)
	}

	if mac, err := a.driver.ReadParameter(ctx, ParamMACAddress); err == nil && len(mac) == 8 {
		var ieee [8]byte
		copy(ieee[:], mac)
		a.coordinatorIEEE.Store(u64le(ieee[:]))
	}

	return "resumed", nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func u64le(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
