package merge

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mcsrc/pipeline/mapping"
)

const proguardSample = `net.minecraft.entity.Entity -> a:
    void tick() -> b
    int age -> c
net.minecraft.world.World -> d:
    long seed -> e
`

const intermediarySample = "tiny\t2\t0\tofficial\tintermediary\n" +
	"c\ta\tnet/minecraft/class_1297\n" +
	"\tm\t()V\tb\tmethod_5678\n" +
	"\tf\tI\tc\tfield_1234\n" +
	"c\td\tnet/minecraft/class_4000\n" +
	"\tf\tJ\te\tfield_9999\n"

func TestMergeProducesExpectedClassAndMethod(t *testing.T) {
	t.Parallel()
	pg, err := mapping.ParseProguard(strings.NewReader(proguardSample))
	if err != nil {
		t.Fatal(err)
	}
	inter, err := mapping.ParseTinyV2(strings.NewReader(intermediarySample))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Merge(pg, inter)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := out.Namespaces, []string{"intermediary", "named"}; !sliceEq(got, want) {
		t.Fatalf("namespaces = %v, want %v", got, want)
	}

	entity := out.FindClass(0, "net/minecraft/class_1297")
	if entity == nil {
		t.Fatal("expected class net/minecraft/class_1297 in output")
	}
	if entity.Name(1) != "net/minecraft/entity/Entity" {
		t.Fatalf("named class = %q", entity.Name(1))
	}
	if len(entity.Methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(entity.Methods))
	}
	m := entity.Methods[0]
	if m.Name(0) != "method_5678" || m.Name(1) != "tick" {
		t.Fatalf("method names = %+v", m.Names)
	}
	if m.Descriptor != "()V" {
		t.Fatalf("method descriptor = %q", m.Descriptor)
	}
	if len(entity.Fields) != 1 || entity.Fields[0].Name(1) != "age" {
		t.Fatalf("fields = %+v", entity.Fields)
	}

	var buf bytes.Buffer
	if err := mapping.WriteTinyV2(&buf, out); err != nil {
		t.Fatal(err)
	}
	out2 := buf.String()
	if !strings.Contains(out2, "c\tnet/minecraft/class_1297\tnet/minecraft/entity/Entity\n") {
		t.Fatalf("expected class line, got:\n%s", out2)
	}
}

func TestMergeFallsBackToIntermediaryWhenNotInProguard(t *testing.T) {
	t.Parallel()
	inter, err := mapping.ParseTinyV2(strings.NewReader(intermediarySample))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Merge(nil, inter)
	if err != nil {
		t.Fatal(err)
	}
	entity := out.FindClass(0, "net/minecraft/class_1297")
	if entity.Name(1) != "net/minecraft/class_1297" {
		t.Fatalf("expected fallback to intermediary name, got %q", entity.Name(1))
	}
}

func sliceEq(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
