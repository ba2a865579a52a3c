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

package fusetesting

import (
	"fmt"
	"reflect"
	"time"

	"github.com/jacobsa/lowfuse/fuseops"
	"github.com/jacobsa/lowfuse/lowlevel"
	"github.com/jacobsa/oglematchers"
)

// Match fuseops.Attr values (or pointers to them, or lowlevel.Stat values)
// that specify an mtime equal to the given time.
func MtimeIs(expected time.Time) oglematchers.Matcher {
	return oglematchers.NewMatcher(
		func(c interface{}) error { return mtimeIs(c, expected) },
		fmt.Sprintf("mtime is %v", expected))
}

func mtimeIs(c interface{}, expected time.Time) error {
	attr, err := extractAttr(c)
	if err != nil {
		return err
	}

	mtime := attr.Mtime.Time()
	if !mtime.Equal(expected) {
		d := mtime.Sub(expected)
		return fmt.Errorf("which has mtime %v, off by %v", mtime, d)
	}

	return nil
}

// Match attributes whose mode is exactly the given value, file type bits
// included.
func ModeIs(expected uint32) oglematchers.Matcher {
	return oglematchers.NewMatcher(
		func(c interface{}) error { return modeIs(c, expected) },
		fmt.Sprintf("mode is %#o", expected))
}

func modeIs(c interface{}, expected uint32) error {
	attr, err := extractAttr(c)
	if err != nil {
		return err
	}

	if attr.Mode != expected {
		return fmt.Errorf("which has mode %#o", attr.Mode)
	}

	return nil
}

// Match attributes with the given size in bytes.
func SizeIs(expected uint64) oglematchers.Matcher {
	return oglematchers.NewMatcher(
		func(c interface{}) error { return sizeIs(c, expected) },
		fmt.Sprintf("size is %d", expected))
}

func sizeIs(c interface{}, expected uint64) error {
	attr, err := extractAttr(c)
	if err != nil {
		return err
	}

	if attr.Size != expected {
		return fmt.Errorf("which has size %d", attr.Size)
	}

	return nil
}

func extractAttr(c interface{}) (attr fuseops.Attr, err error) {
	switch v := c.(type) {
	case fuseops.Attr:
		attr = v
	case *fuseops.Attr:
		attr = *v
	case lowlevel.Stat:
		attr = fuseops.AttrFromNative(&v)
	case *lowlevel.Stat:
		attr = fuseops.AttrFromNative(v)
	default:
		err = fmt.Errorf("which is of type %v", reflect.TypeOf(c))
	}

	return
}
