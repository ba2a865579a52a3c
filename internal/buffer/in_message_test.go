// Copyright 2015 Google Inc. All Rights Reserved.
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

package buffer

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/jacobsa/lowfuse/internal/fusekernel"
	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
)

func TestInMessage(t *testing.T) { RunTests(t) }

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

func asBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

func makeMessage(op fusekernel.Opcode, payload ...[]byte) []byte {
	h := fusekernel.InHeader{
		Opcode: op,
		Unique: 7,
		Nodeid: 1,
	}

	var buf bytes.Buffer
	buf.Write(asBytes(&h))
	for _, p := range payload {
		buf.Write(p)
	}

	b := buf.Bytes()
	(*fusekernel.InHeader)(unsafe.Pointer(&b[0])).Len = uint32(len(b))

	return b
}

////////////////////////////////////////////////////////////////////////
// Boilerplate
////////////////////////////////////////////////////////////////////////

type InMessageTest struct {
	m *InMessage
}

var _ SetUpInterface = &InMessageTest{}

func init() { RegisterTestSuite(&InMessageTest{}) }

func (t *InMessageTest) SetUp(ti *TestInfo) {
	t.m = NewInMessage()
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

func (t *InMessageTest) ShortRead() {
	err := t.m.Init(bytes.NewReader([]byte{1, 2, 3}))
	ExpectThat(err, Error(HasSubstr("only 3 bytes")))
}

func (t *InMessageTest) LengthMismatch() {
	msg := makeMessage(fusekernel.OpGetattr)
	(*fusekernel.InHeader)(unsafe.Pointer(&msg[0])).Len = 1000

	err := t.m.Init(bytes.NewReader(msg))
	ExpectThat(err, Error(HasSubstr("Header says 1000 bytes")))
}

func (t *InMessageTest) ConsumeStructThenName() {
	in := fusekernel.MkdirIn{Mode: 0755, Umask: 022}
	msg := makeMessage(
		fusekernel.OpMkdir,
		asBytes(&in),
		[]byte("taco\x00"))

	AssertEq(nil, t.m.Init(bytes.NewReader(msg)))
	ExpectEq(fusekernel.OpMkdir, t.m.Header().Opcode)
	ExpectEq(7, t.m.Header().Unique)

	got := Consume[fusekernel.MkdirIn](t.m)
	AssertTrue(got != nil)
	ExpectEq(0755, got.Mode)
	ExpectEq(022, got.Umask)

	ExpectEq("taco", string(t.m.ConsumeName()))
	ExpectEq(0, t.m.Len())
}

func (t *InMessageTest) ConsumePastEnd() {
	msg := makeMessage(fusekernel.OpForget, []byte{1, 2, 3, 4})
	AssertEq(nil, t.m.Init(bytes.NewReader(msg)))

	ExpectTrue(Consume[fusekernel.ForgetIn](t.m) == nil)
	ExpectTrue(t.m.ConsumeBytes(5) == nil)
	ExpectThat(t.m.ConsumeBytes(4), DeepEquals([]byte{1, 2, 3, 4}))
	ExpectTrue(t.m.Consume(1) == nil)
}

func (t *InMessageTest) UnterminatedName() {
	msg := makeMessage(fusekernel.OpLookup, []byte("taco"))
	AssertEq(nil, t.m.Init(bytes.NewReader(msg)))

	ExpectTrue(t.m.ConsumeName() == nil)
}
