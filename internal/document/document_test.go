/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestPropertiesKeepInsertionOrder(t *testing.T) {
	p := NewProperties("fontSize", 14.0, "fontFamily", "Arial", "fill", "#333333")
	p.Set("fontSize", 16.0)
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(b); got != `{"fontSize":16,"fontFamily":"Arial","fill":"#333333"}` {
		t.Fatalf("unexpected order: %s", got)
	}
	var back Properties
	if err := json.Unmarshal([]byte(`{"z":1,"a":"x","m":[1,2]}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if k := back.Keys(); strings.Join(k, ",") != "z,a,m" {
		t.Fatalf("keys = %v", k)
	}
	back.Delete("a")
	if back.Len() != 2 || back.String("z") != "1" {
		t.Fatalf("delete/string failed: %v", back.Map())
	}
}

func TestDecodeDetectsFormats(t *testing.T) {
	stage := `{"attrs":{"width":800},"className":"Stage","children":[{"attrs":{},"className":"Layer","children":[
		{"attrs":{"id":"a","name":"cv-element heading-element"},"className":"Text"},
		{"attrs":{"id":"b"},"className":"Rect"}]}]}`
	p, err := Decode([]byte(stage))
	if err != nil || p.Format != FormatStage || len(p.Nodes) != 2 {
		t.Fatalf("stage: %v %+v", err, p)
	}

	node := `{"attrs":{"id":"x"},"className":"Circle"}`
	p, err = Decode([]byte(node))
	if err != nil || p.Format != FormatNode || len(p.Nodes) != 1 {
		t.Fatalf("node: %v %+v", err, p)
	}

	if _, err := Decode([]byte(`{"foo":1}`)); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestElementsEntriesValidatedIndividually(t *testing.T) {
	in := `{"elements":[
		{"id":"e1","type":"text","attrs":{"x":10,"y":20},"properties":{"fontSize":14}},
		{"type":"rectangle"},
		{"attrs":{"x":1}},
		{"type":"line","attrs":{"points":[0,0,"x",0]}},
		{"type":"circle","attrs":{"x":5}}
	]}`
	p, err := Decode([]byte(in))
	if err != nil || p.Format != FormatElements {
		t.Fatalf("decode: %v", err)
	}
	var ok, bad int
	for _, e := range p.Entries {
		if e.Err != nil {
			bad++
			continue
		}
		ok++
	}
	if ok != 2 || bad != 3 {
		t.Fatalf("ok=%d bad=%d", ok, bad)
	}
	first := p.Entries[0].Record
	if first.ID != "e1" || first.Type != "text" || first.Properties.String("fontSize") != "14" {
		t.Fatalf("record not decoded: %+v", first)
	}

	doc, err := Parse([]byte(in))
	if err == nil || len(doc.Elements) != 2 {
		t.Fatalf("Parse should keep 2 and report skips: %v %d", err, len(doc.Elements))
	}
}

func TestDocumentMarshalEmpty(t *testing.T) {
	b, err := Document{}.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"elements": []`) {
		t.Fatalf("empty document should have an empty list: %s", b)
	}
}
