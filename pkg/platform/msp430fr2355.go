// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package platform

import "fmt"

// Port register table of the MSP430FR2355
//
//	| PORT | IN    | OUT   | DIR   | REN   | IES   | IE    | IFG   |
//	|------|-------|-------|-------|-------|-------|-------|-------|
//	| P1   | 0200h | 0202h | 0204h | 0206h | 0218h | 021Ah | 021Ch |
//	| P2   | 0201h | 0203h | 0205h | 0207h | 0219h | 021Bh | 021Dh |
//	| P3   | 0220h | 0222h | 0224h | 0226h | 0238h | 023Ah | 023Ch |
//	| P4   | 0221h | 0223h | 0225h | 0227h | 0239h | 023Bh | 023Dh |
//	| P5   | 0240h | 0242h | 0244h | 0246h | 0258h | 025Ah | 025Ch |
//	| P6   | 0241h | 0243h | 0245h | 0247h | 0259h | 025Bh | 025Dh |
var msp430fr2355Ports = []PortRegisters{
	{In: 0x0200, Out: 0x0202, Dir: 0x0204, Ren: 0x0206, IES: 0x0218, IE: 0x021A, IFG: 0x021C, Vector: "PORT1"},
	{In: 0x0201, Out: 0x0203, Dir: 0x0205, Ren: 0x0207, IES: 0x0219, IE: 0x021B, IFG: 0x021D, Vector: "PORT2"},
	{In: 0x0220, Out: 0x0222, Dir: 0x0224, Ren: 0x0226, IES: 0x0238, IE: 0x023A, IFG: 0x023C, Vector: "PORT3"},
	{In: 0x0221, Out: 0x0223, Dir: 0x0225, Ren: 0x0227, IES: 0x0239, IE: 0x023B, IFG: 0x023D, Vector: "PORT4"},
	{In: 0x0240, Out: 0x0242, Dir: 0x0244, Ren: 0x0246, IES: 0x0258, IE: 0x025A, IFG: 0x025C, Vector: "PORT5"},
	{In: 0x0241, Out: 0x0243, Dir: 0x0245, Ren: 0x0247, IES: 0x0259, IE: 0x025B, IFG: 0x025D, Vector: "PORT6"},
}

// Timer_B base addresses and channel counts
var msp430fr2355Timers = []struct {
	base     Address
	channels int
}{
	{0x0380, 3},
	{0x03C0, 3},
	{0x0400, 3},
	{0x0440, 7},
}

// Register offsets within a Timer_B block
const (
	timerBCTLOfs  = 0x00
	timerBCCTLOfs = 0x02
	timerBROfs    = 0x10
	timerBCCROfs  = 0x12
	timerBEX0Ofs  = 0x20
	timerBIVOfs   = 0x2E
)

// MSP430FR2355 returns the register layout of the TI MSP430FR2355.
func MSP430FR2355() *Platform {
	p := &Platform{
		Name:        "msp430fr2355",
		Compatible:  "ti,msp430fr2355",
		SMCLKHz:     1000000,
		ACLKHz:      32768,
		Ports:       append([]PortRegisters(nil), msp430fr2355Ports...),
		WatchdogCTL: 0x01CC,
		PM5CTL0:     0x0130,
	}
	for i, t := range msp430fr2355Timers {
		regs := TimerRegisters{
			Name:    fmt.Sprintf("TB%d", i),
			CTL:     t.base + timerBCTLOfs,
			R:       t.base + timerBROfs,
			EX0:     t.base + timerBEX0Ofs,
			IV:      t.base + timerBIVOfs,
			Vector0: Vector(fmt.Sprintf("TIMER%d_B0", i)),
			Vector:  Vector(fmt.Sprintf("TIMER%d_B1", i)),
		}
		for ch := 0; ch < t.channels; ch++ {
			regs.CCTL = append(regs.CCTL, t.base+timerBCCTLOfs+Address(2*ch))
			regs.CCR = append(regs.CCR, t.base+timerBCCROfs+Address(2*ch))
		}
		p.Timers = append(p.Timers, regs)
	}
	return p
}
