package mapping

import (
	"strings"
	"testing"
)

const sampleProguard = `net.minecraft.entity.Entity -> a:
    int age -> a
    float health -> b
    1:5:void tick() -> c
    10:20:boolean isAlive(int,net.minecraft.entity.Entity) -> d
net.minecraft.world.World -> b:
    long seed -> a
`

func TestParseProguard(t *testing.T) {
	t.Parallel()
	classes, err := ParseProguard(strings.NewReader(sampleProguard))
	if err != nil {
		t.Fatal(err)
	}
	if len(classes) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(classes))
	}
	c := classes[0]
	if c.Named != "net.minecraft.entity.Entity" || c.Obfuscated != "a" {
		t.Fatalf("bad class: %+v", c)
	}
	if len(c.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(c.Fields))
	}
	if c.Fields[0].Type != "int" || c.Fields[0].Named != "age" || c.Fields[0].Obfuscated != "a" {
		t.Fatalf("bad field: %+v", c.Fields[0])
	}
	if len(c.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(c.Methods))
	}
	m0 := c.Methods[0]
	if m0.LineFrom != 1 || m0.LineTo != 5 || m0.ReturnType != "void" || m0.Named != "tick" || m0.Obfuscated != "c" {
		t.Fatalf("bad method: %+v", m0)
	}
	m1 := c.Methods[1]
	if m1.ReturnType != "boolean" || m1.Named != "isAlive" || len(m1.ParamTypes) != 2 {
		t.Fatalf("bad method: %+v", m1)
	}
	if m1.ParamTypes[0] != "int" || m1.ParamTypes[1] != "net.minecraft.entity.Entity" {
		t.Fatalf("bad params: %+v", m1.ParamTypes)
	}
}

func TestParseProguardMalformed(t *testing.T) {
	t.Parallel()
	_, err := ParseProguard(strings.NewReader("not a valid line\n"))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseProguardOrphanMember(t *testing.T) {
	t.Parallel()
	_, err := ParseProguard(strings.NewReader("    int a -> b\n"))
	if err == nil {
		t.Fatal("expected error")
	}
}
