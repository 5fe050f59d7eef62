package generator

// snippets are completions long enough to be counted as accepted.
var snippets = []string{
	"return nil",
	"err != nil",
	"fmt.Println(msg)",
	"if err != nil {\n\treturn err\n}",
	"for i := 0; i < n; i++ {\n}",
	"ctx, cancel := context.WithCancel(ctx)",
	"defer cancel()",
	"const limit = 100",
	"type Handler interface {\n\tServe(req Request) Response\n}",
	"items = append(items, item)",
	"let total = values.reduce((a, b) => a + b, 0);",
	"const router = express.Router();",
	"export function handler(req, res) {\n  res.json({ ok: true });\n}",
	"class UserService {\n}",
	"interface Props { name: string }",
	"var wg sync.WaitGroup",
	"def handle(request):\n    return Response(status=200)",
	"return [x for x in items if x]",
	"self.cache = {}",
	"logger.info(\"started\")",
}
