package feedback

import (
	"fmt"
	"strings"

	"specpilot/internal/analysis"
	"specpilot/internal/cache"
	"specpilot/internal/callgraph"
	"specpilot/internal/extractor"
	"specpilot/internal/introspect"
	"specpilot/internal/payload"
)

// Analyzer is the subset of the engine the rules consume.
type Analyzer interface {
	FindClass(root, name string) (cache.Lookup, bool)
	ServiceCalls(root, entryClass, entryMethod string) ([]callgraph.ServiceCall, bool)
	Swagger(root, controller, handler string) (introspect.SwaggerUsage, bool)
	Auth(root, controller, handler string) (introspect.AuthUsage, bool)
	Synthesize(root, className string, maxDepth int) (payload.Value, bool)
}

var (
	DefaultSensitivePaths = []string{
		"/me", "/my", "/profile", "/account", "/settings", "/admin", "/dashboard",
		"/billing", "/orders", "/payments", "/users/me", "/private",
	}
	DefaultPublicMetaKeys = []string{"isPublic", "public", "allowAnonymous"}
)

// Policy tunes the access rules.
type Policy struct {
	// SensitivePaths are lowercase path fragments of GET routes that
	// likely need protection.
	SensitivePaths []string
	// PublicMetaKeys name the markers of intentionally public routes.
	PublicMetaKeys []string
}

func DefaultPolicy() Policy {
	return Policy{
		SensitivePaths: append([]string(nil), DefaultSensitivePaths...),
		PublicMetaKeys: append([]string(nil), DefaultPublicMetaKeys...),
	}
}

func (p Policy) sensitive(path string) bool {
	if path == "" {
		return false
	}
	lower := strings.ToLower(path)
	for _, seg := range p.SensitivePaths {
		if strings.Contains(lower, strings.ToLower(seg)) {
			return true
		}
	}
	return false
}

// isPublic matches @Public()-style decorators named after a meta key and
// @SetMetadata('<key>', true).
func (p Policy) isPublic(decs []extractor.Decorator, src []byte) bool {
	for _, d := range decs {
		for _, key := range p.PublicMetaKeys {
			if strings.EqualFold(d.Name, key) {
				return true
			}
		}
		if d.Name != "SetMetadata" {
			continue
		}
		key, _ := extractor.Eval(d.Arg(0), src)
		val, _ := extractor.Eval(d.Arg(1), src)
		if k, ok := key.(string); ok && val == true && containsFold(p.PublicMetaKeys, k) {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Thresholds for service method complexity.
const (
	ComplexityWarn = analysis.ComplexityWarn
	ComplexityInfo = analysis.ComplexityInfo
)

// ControllerIssues applies the access and documentation rules to a route.
func ControllerIssues(a Analyzer, root string, route Route, policy Policy) []Issue {
	var issues []Issue
	method := strings.ToUpper(route.HTTP.Method)
	sensitiveGet := method == "GET" && policy.sensitive(route.HTTP.Path)

	if sw, ok := a.Swagger(root, route.Controller, route.Handler); ok {
		if !sw.Documented() {
			issues = append(issues, Issue{
				Code:     "SP003",
				Severity: SeverityInfo,
				Message:  "No Swagger decorators found.",
				Hint:     "Add @ApiTags on the controller and @ApiOperation/@ApiResponse on the handler.",
			})
		}
		looksProtected := !route.IsPublic && (route.HasGuards || sensitiveGet)
		if looksProtected && !sw.HasAPIBearerAuth {
			issues = append(issues, Issue{
				Code:     "SP006",
				Severity: SeverityWarn,
				Message:  "Route looks protected but has no @ApiBearerAuth.",
				Hint:     "Add @ApiBearerAuth() to expose the auth scheme in the API docs.",
			})
		}
	}

	if au, ok := a.Auth(root, route.Controller, route.Handler); ok {
		if au.UsesAuthContext() && !route.IsPublic && !route.HasGuards {
			issues = append(issues, Issue{
				Code:     "SP007",
				Severity: SeverityWarn,
				Message:  "Handler reads the auth context (req.user / @CurrentUser) but has no guard.",
				Hint:     "Declare access control with @UseGuards(AuthGuard). Mark public routes with @Public().",
			})
		}
	}

	if sensitiveGet && !route.IsPublic && !route.HasGuards {
		issues = append(issues, Issue{
			Code:     "SP001",
			Severity: SeverityWarn,
			Message:  "Sensitive GET route has no guard.",
			Hint:     "Consider @UseGuards(AuthGuard) or a controller-level guard. Mark public routes explicitly with @Public().",
		})
	}

	if method != "" && method != "GET" && !route.HasGuards {
		issues = append(issues, Issue{
			Code:     "SP001",
			Severity: SeverityWarn,
			Message:  "Write (non-GET) route has no auth guard.",
			Hint:     "Consider @UseGuards(AuthGuard) or a controller-level guard.",
		})
	}

	if method == "POST" || method == "PUT" || method == "PATCH" {
		if len(DTOClasses(a, root, route.ParamTypes)) == 0 {
			issues = append(issues, Issue{
				Code:     "SP002",
				Severity: SeverityWarn,
				Message:  "Route looks like it accepts a body but no DTO class is visible.",
				Hint:     "Define a DTO class with class-validator decorators and use it as the handler parameter type.",
			})
		}
	}
	return issues
}

// DTOClasses returns the parameter types that name a class declared in
// the project. Array types and erased types (interfaces, primitives) do not count.
func DTOClasses(a Analyzer, root string, paramTypes []string) []string {
	var out []string
	for _, t := range paramTypes {
		if _, isArray := extractor.ElementType(t); isArray {
			continue
		}
		name := extractor.TypeSymbolName(t)
		if name == "" || containsFold(out, name) {
			continue
		}
		if _, ok := a.FindClass(root, name); ok {
			out = append(out, name)
		}
	}
	return out
}

// AnalyzeControllerToService follows every injected service call of a
// handler and reports complexity and N+1 findings of the target methods.
// Anything that cannot be resolved becomes an informational note.
func AnalyzeControllerToService(a Analyzer, root, controller, handler string) []Issue {
	ctrl, ok := a.FindClass(root, controller)
	if !ok {
		return []Issue{{
			Code:     "SP900",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("Controller %s not found in source; static analysis skipped.", controller),
		}}
	}
	if _, ok := ctrl.Class.Method(handler); !ok {
		return []Issue{{
			Code:     "SP901",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("Handler %s.%s not found; static analysis skipped.", controller, handler),
		}}
	}

	calls, _ := a.ServiceCalls(root, controller, handler)
	if len(calls) == 0 {
		return []Issue{{
			Code:     "SP902",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("No service call (this.<field>.<method>) found in %s.%s.", controller, handler),
		}}
	}

	var issues []Issue
	for _, call := range calls {
		svc, ok := a.FindClass(root, call.TargetType)
		if !ok {
			issues = append(issues, Issue{
				Code:     "SP903",
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("Service type %s declaration not found; static analysis skipped.", call.TargetType),
			})
			continue
		}
		target, ok := svc.Class.Method(call.Method)
		if !ok {
			issues = append(issues, Issue{
				Code:     "SP904",
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("Service method %s.%s not found; static analysis skipped.", call.TargetType, call.Method),
			})
			continue
		}
		issues = append(issues, serviceMethodIssues(call.TargetType, target)...)
	}
	return issues
}

func serviceMethodIssues(service string, m *extractor.Method) []Issue {
	var issues []Issue
	name := service + "." + m.Name

	switch cx := analysis.CyclomaticComplexity(m); {
	case cx >= ComplexityWarn:
		issues = append(issues, Issue{
			Code:     "SP101",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("Service %s has high complexity: %d", name, cx),
			Hint:     "Split branches and loops, return early, extract helper functions.",
		})
	case cx >= ComplexityInfo:
		issues = append(issues, Issue{
			Code:     "SP100",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("Service %s has moderate complexity: %d", name, cx),
			Hint:     "Split test cases and extract functions to keep it readable.",
		})
	}

	if f := analysis.DetectLoopBoundRemoteCalls(m); f.Suspect {
		issues = append(issues, Issue{
			Code:     "SP201",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("Possible N+1 in service %s: '%s' is awaited inside a loop", name, f.Sample),
			Hint:     "Batch the query (IN / join), preload relations, or build a Map outside the loop.",
		})
	}
	return issues
}
