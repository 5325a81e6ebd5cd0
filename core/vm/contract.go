// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"github.com/ethereum/go-ethereum/common"
)

// ContractRef is a reference to the contract's backing object, identifying
// whoever is the caller of a frame (an EOA, or another contract).
type ContractRef interface {
	Address() common.Address
}

// AccountRef implements ContractRef: it is a plain address with no
// associated code, used for EOA callers and as a placeholder when only the
// address matters.
type AccountRef common.Address

// Address casts AccountRef to a common.Address.
func (ar AccountRef) Address() common.Address { return (common.Address)(ar) }
