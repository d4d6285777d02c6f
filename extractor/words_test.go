package extractor

import (
	"testing"

	"github.com/solvane/docia/ir/raw"
)

func TestInheritedResources_DirectOnPage(t *testing.T) {
	e := &Extractor{raw: &raw.Document{Objects: map[raw.ObjectRef]raw.Object{}}}
	res := &raw.DictObj{KV: map[string]raw.Object{"Font": &raw.DictObj{}}}
	page := &raw.DictObj{KV: map[string]raw.Object{"Resources": res}}

	got := e.inheritedResources(page)
	if got != res {
		t.Fatalf("expected page's own Resources dict, got %+v", got)
	}
}

func TestInheritedResources_InheritedFromParentPagesNode(t *testing.T) {
	e := &Extractor{raw: &raw.Document{Objects: map[raw.ObjectRef]raw.Object{}}}
	res := &raw.DictObj{KV: map[string]raw.Object{"Font": &raw.DictObj{}}}
	parent := &raw.DictObj{KV: map[string]raw.Object{"Type": raw.NameLiteral("Pages"), "Resources": res}}
	page := &raw.DictObj{KV: map[string]raw.Object{"Type": raw.NameLiteral("Page"), "Parent": parent}}

	got := e.inheritedResources(page)
	if got != res {
		t.Fatalf("expected Resources inherited from /Parent, got %+v", got)
	}
}

func TestInheritedResources_NoneAnywhereReturnsNil(t *testing.T) {
	e := &Extractor{raw: &raw.Document{Objects: map[raw.ObjectRef]raw.Object{}}}
	parent := &raw.DictObj{KV: map[string]raw.Object{"Type": raw.NameLiteral("Pages")}}
	page := &raw.DictObj{KV: map[string]raw.Object{"Type": raw.NameLiteral("Page"), "Parent": parent}}

	if got := e.inheritedResources(page); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestInheritedResources_CyclicParentDoesNotLoopForever(t *testing.T) {
	e := &Extractor{raw: &raw.Document{Objects: map[raw.ObjectRef]raw.Object{}}}
	page := &raw.DictObj{KV: map[string]raw.Object{}}
	page.KV["Parent"] = page // self-referential cycle

	if got := e.inheritedResources(page); got != nil {
		t.Fatalf("expected nil on cyclic parent chain, got %+v", got)
	}
}
