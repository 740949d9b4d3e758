package introspect

import (
	"strings"
	"testing"
	"time"

	"specpilot/internal/cache"
	"specpilot/internal/crawler"
	"specpilot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceSource = `
import { Injectable, NotFoundException, ConflictException as Dup } from '@nestjs/common';

@Injectable()
export class OrdersService {
  constructor(
    private readonly repo: Repository<Order>,
    private readonly mailer: MailService,
    private readonly dataSource: DataSource,
  ) {}

  async place(userId: string, items: Item[], note): Promise<Order> {
    const existing = await this.repo.findOne({ where: { userId } });
    if (existing) {
      throw new Dup('order exists');
    }
    for (const item of items) {
      await this.repo.save(item);
    }
    return this.dataSource.transaction(async (manager) => {
      const order = await manager.save(new Order());
      this.mailer.send(userId, 'placed a new order with a deliberately long message body so that the recorded call-site snippet is longer than the limit and has to be truncated');
      return order;
    });
  }

  async get(id: string) {
    const o = await this.repo.findOne(id);
    if (!o) throw new NotFoundException();
    return o;
  }
}
`

const controllerSource = `
import { Controller, Get, Post, Req, Body, UseGuards } from '@nestjs/common';
import { ApiTags, ApiOperation, ApiOkResponse, ApiBearerAuth } from '@nestjs/swagger';

@ApiTags('orders')
@Controller('orders')
export class OrdersController {
  @ApiOperation({ summary: 'mine' })
  @ApiOkResponse()
  @Get('me')
  mine(@Req() req: Request) {
    return this.orders.list(req.user.id);
  }

  @ApiBearerAuth()
  @Post()
  create(@CurrentUser() actor: Actor, @Body() dto: CreateOrderDto) {
    return dto;
  }

  @Get('profile')
  profile(principal: AuthPrincipal) {
    return principal;
  }

  @Get()
  list() {
    return [];
  }
}

export class BareController {
  @Get()
  index(request) {
    return request.headers;
  }
}
`

func newInspector(t *testing.T) (*Inspector, string) {
	t.Helper()
	root := testutil.WriteProject(t, map[string]string{
		"src/orders/orders.service.ts":    serviceSource,
		"src/orders/orders.controller.ts": controllerSource,
	})
	return NewInspector(cache.NewProjectCache(crawler.NewCrawler(nil), nil), 0, nil), root
}

func TestServiceMethod(t *testing.T) {
	in, root := newInspector(t)

	res, ok := in.ServiceMethod(root, "OrdersService", "place")
	require.True(t, ok)

	assert.Equal(t, 3, res.ParamCount)
	assert.Equal(t, []string{"string", "Item[]", "any"}, res.ParamTypes)
	assert.Equal(t, "Promise<Order>", res.ReturnType)
	assert.True(t, res.UsesTransaction)
	assert.Equal(t, []string{"NotFoundException", "ConflictException"}, res.ExceptionHints)
	assert.Equal(t, []string{"ConflictException"}, res.ThrowsDetected, "aliases resolve and Order is not an error")

	require.Len(t, res.Calls, 4)
	assert.Equal(t, CallSite{Receiver: "repo", Method: "findOne", InLoop: false, Snippet: "this.repo.findOne({ where: { userId } })"}, res.Calls[0])
	assert.Equal(t, "save", res.Calls[1].Method)
	assert.True(t, res.Calls[1].InLoop)
	assert.Equal(t, "dataSource", res.Calls[2].Receiver)
	assert.Equal(t, "mailer", res.Calls[3].Receiver)
	assert.Equal(t, SnippetLimit, len([]rune(res.Calls[3].Snippet)))
	assert.True(t, strings.HasPrefix(res.Calls[3].Snippet, "this.mailer.send("))

	_, ok = in.ServiceMethod(root, "OrdersService", "missing")
	assert.False(t, ok)
	_, ok = in.ServiceMethod(root, "MissingService", "place")
	assert.False(t, ok)
}

func TestServiceMethod_CachedWithinTTL(t *testing.T) {
	in, root := newInspector(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in.SetClock(func() time.Time { return now })

	first, ok := in.ServiceMethod(root, "OrdersService", "get")
	require.True(t, ok)
	second, ok := in.ServiceMethod(root, "OrdersService", "get")
	require.True(t, ok)
	assert.Same(t, first, second)

	now = now.Add(cache.DefaultTTL)
	third, ok := in.ServiceMethod(root, "OrdersService", "get")
	require.True(t, ok)
	assert.NotSame(t, first, third)
	assert.Equal(t, first, third, "recomputed results are identical")

	in.Invalidate(root)
	fourth, _ := in.ServiceMethod(root, "OrdersService", "get")
	assert.NotSame(t, third, fourth)
}

func TestSwagger(t *testing.T) {
	in, root := newInspector(t)

	sw, ok := in.Swagger(root, "OrdersController", "mine")
	require.True(t, ok)
	assert.Equal(t, SwaggerUsage{HasAPIOperation: true, HasAPIResponse: true, HasAPITags: true}, sw)

	sw, ok = in.Swagger(root, "OrdersController", "create")
	require.True(t, ok)
	assert.True(t, sw.HasAPIBearerAuth)
	assert.False(t, sw.HasAPIOperation)

	sw, ok = in.Swagger(root, "BareController", "index")
	require.True(t, ok)
	assert.False(t, sw.Documented())

	_, ok = in.Swagger(root, "OrdersController", "missing")
	assert.False(t, ok)
}

func TestAuth(t *testing.T) {
	in, root := newInspector(t)

	cases := []struct {
		handler string
		want    AuthUsage
	}{
		{"mine", AuthUsage{UsesRequestUser: true}},
		{"create", AuthUsage{HasCurrentUser: true}},
		{"profile", AuthUsage{HasAuthLikeParamType: true}},
		{"list", AuthUsage{}},
	}
	for _, tc := range cases {
		got, ok := in.Auth(root, "OrdersController", tc.handler)
		require.True(t, ok, tc.handler)
		assert.Equal(t, tc.want, got, tc.handler)
	}

	got, ok := in.Auth(root, "BareController", "index")
	require.True(t, ok)
	assert.False(t, got.UsesAuthContext())
}

func TestHandlerParamCount(t *testing.T) {
	in, root := newInspector(t)

	n, ok := in.HandlerParamCount(root, "OrdersController", "create")
	require.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = in.HandlerParamCount(root, "Nope", "create")
	assert.False(t, ok)
}
