package state

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Namespace for every derived identifier. Changing it re-keys all rows.
var Namespace = uuid.MustParse("0f9da948-a6fb-4c45-9edc-4685c3f3317d")

func derive(name string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(name))
}

func SubaccountUUID(owner string, number uint32) uuid.UUID {
	return derive(fmt.Sprintf("%s-%d", owner, number))
}

func OrderUUID(subaccountID uuid.UUID, clientID, clobPairID, orderFlags uint32) uuid.UUID {
	return derive(fmt.Sprintf("%s-%d-%d-%d", subaccountID, clientID, clobPairID, orderFlags))
}

func FillUUID(eventID []byte, liquidity Liquidity) uuid.UUID {
	return derive(fmt.Sprintf("%s-%s", hex.EncodeToString(eventID), liquidity))
}

// PerpetualPositionUUID includes the perpetual id because one subaccount
// update event can open positions in several markets.
func PerpetualPositionUUID(subaccountID uuid.UUID, perpetualID uint32, openEventID []byte) uuid.UUID {
	return derive(fmt.Sprintf("%s-%d-%s", subaccountID, perpetualID, hex.EncodeToString(openEventID)))
}

func AssetPositionUUID(subaccountID uuid.UUID, assetID uint32) uuid.UUID {
	return derive(fmt.Sprintf("%s-%d", subaccountID, assetID))
}

// EventID packs (height, transactionIndex, eventIndex) into 12 big-endian
// bytes. The transaction index is offset by 2 so block lifecycle events
// (-2, -1) stay unsigned and sort first.
func EventID(height uint32, transactionIndex int32, eventIndex uint32) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:4], height)
	binary.BigEndian.PutUint32(b[4:8], uint32(transactionIndex+2))
	binary.BigEndian.PutUint32(b[8:12], eventIndex)
	return b
}
