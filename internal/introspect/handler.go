package introspect

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"specpilot/internal/extractor"
)

var responseDecorators = []string{
	"ApiResponse",
	"ApiOkResponse",
	"ApiCreatedResponse",
	"ApiBadRequestResponse",
	"ApiUnauthorizedResponse",
	"ApiForbiddenResponse",
	"ApiNotFoundResponse",
}

// SwaggerUsage reports which API documentation decorators a handler carries.
type SwaggerUsage struct {
	HasAPIOperation  bool
	HasAPIResponse   bool
	HasAPITags       bool // class level
	HasAPIBearerAuth bool // class or method level
}

// Documented reports whether any documentation decorator is present.
func (s SwaggerUsage) Documented() bool {
	return s.HasAPIOperation || s.HasAPIResponse || s.HasAPITags
}

// Swagger inspects the documentation decorators of controller.handler.
func (in *Inspector) Swagger(root, controller, handler string) (SwaggerUsage, bool) {
	cls, m, ok := in.handler(root, controller, handler)
	if !ok {
		return SwaggerUsage{}, false
	}
	return SwaggerUsage{
		HasAPIOperation:  extractor.HasDecorator(m.Decorators, "ApiOperation"),
		HasAPIResponse:   extractor.HasDecorator(m.Decorators, responseDecorators...),
		HasAPITags:       extractor.HasDecorator(cls.Decorators, "ApiTags"),
		HasAPIBearerAuth: extractor.HasDecorator(cls.Decorators, "ApiBearerAuth") || extractor.HasDecorator(m.Decorators, "ApiBearerAuth"),
	}, true
}

// AuthUsage reports whether a handler reads the authenticated principal.
type AuthUsage struct {
	UsesRequestUser      bool // req.user on a request-like parameter
	HasCurrentUser       bool // @CurrentUser() or @AuthUser() parameter
	HasAuthLikeParamType bool // parameter type mentions user or auth
}

// UsesAuthContext reports whether any auth signal is present.
func (a AuthUsage) UsesAuthContext() bool {
	return a.UsesRequestUser || a.HasCurrentUser || a.HasAuthLikeParamType
}

var requestParamNames = map[string]bool{"req": true, "request": true, "ctx": true, "context": true}

// Auth inspects controller.handler for authenticated-user access.
func (in *Inspector) Auth(root, controller, handler string) (AuthUsage, bool) {
	_, m, ok := in.handler(root, controller, handler)
	if !ok {
		return AuthUsage{}, false
	}

	var usage AuthUsage
	requestNames := map[string]bool{}
	for _, p := range m.Params() {
		if extractor.HasDecorator(p.Decorators, "CurrentUser", "AuthUser") {
			usage.HasCurrentUser = true
		}
		typeName := strings.ToLower(extractor.TypeSymbolName(p.Type))
		if strings.Contains(typeName, "user") || strings.Contains(typeName, "auth") {
			usage.HasAuthLikeParamType = true
		}
		if requestParamNames[p.Name] || strings.Contains(typeName, "request") ||
			extractor.HasDecorator(p.Decorators, "Req", "Request") {
			requestNames[p.Name] = true
		}
	}

	if len(requestNames) > 0 {
		src := m.File().Source
		m.Walk(func(n *sitter.Node) bool {
			if usage.UsesRequestUser {
				return false
			}
			if n.Type() != "member_expression" {
				return true
			}
			obj := n.ChildByFieldName("object")
			if obj != nil && obj.Type() == "identifier" && requestNames[extractor.Content(obj, src)] &&
				extractor.Content(n.ChildByFieldName("property"), src) == "user" {
				usage.UsesRequestUser = true
				return false
			}
			return true
		})
	}
	return usage, true
}

// HandlerParamCount returns the number of declared parameters of a handler.
func (in *Inspector) HandlerParamCount(root, controller, handler string) (int, bool) {
	_, m, ok := in.handler(root, controller, handler)
	if !ok {
		return 0, false
	}
	return len(m.Params()), true
}

func (in *Inspector) handler(root, controller, handler string) (*extractor.Class, *extractor.Method, bool) {
	lookup, ok := in.finder.FindClass(root, controller)
	if !ok {
		return nil, nil, false
	}
	m, ok := lookup.Class.Method(handler)
	if !ok {
		return nil, nil, false
	}
	return lookup.Class, m, true
}
