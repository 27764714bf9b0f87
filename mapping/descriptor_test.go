package mapping

import "testing"

func TestRewriteDescriptorRoundTrip(t *testing.T) {
	t.Parallel()
	cases := []string{
		"I",
		"Ljava/lang/String;",
		"[Lnet/minecraft/entity/Entity;",
		"(Lnet/minecraft/entity/Entity;I)Ljava/lang/String;",
		"(Ljava/util/List;[[I)V",
	}
	rho := map[string]string{
		"net/minecraft/entity/Entity": "net/minecraft/class_1297",
	}
	inverse := map[string]string{
		"net/minecraft/class_1297": "net/minecraft/entity/Entity",
	}
	for _, d := range cases {
		rewritten := RewriteDescriptor(d, rho)
		back := RewriteDescriptor(rewritten, inverse)
		if back != d {
			t.Errorf("round trip failed: %q -> %q -> %q", d, rewritten, back)
		}
	}
}

func TestRewriteDescriptorLeavesUnknownClasses(t *testing.T) {
	t.Parallel()
	d := "Ljava/lang/String;"
	got := RewriteDescriptor(d, map[string]string{"net/minecraft/entity/Entity": "a"})
	if got != d {
		t.Fatalf("got %q want unchanged %q", got, d)
	}
}

func TestEncodeType(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"boolean":                "Z",
		"int":                    "I",
		"void":                   "V",
		"java.lang.String":       "Ljava/lang/String;",
		"int[]":                  "[I",
		"java.lang.String[][]":   "[[Ljava/lang/String;",
		"net.minecraft.Entity":   "Lnet/minecraft/Entity;",
	}
	for in, want := range cases {
		if got := EncodeType(in); got != want {
			t.Errorf("EncodeType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEncodeMethodDescriptor(t *testing.T) {
	t.Parallel()
	got := EncodeMethodDescriptor([]string{"int", "java.lang.String"}, "boolean")
	want := "(ILjava/lang/String;)Z"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
