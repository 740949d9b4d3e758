package analysis

import (
	"context"
	"testing"

	"specpilot/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceSource = `
export class OrdersService {
  constructor(private readonly repo: Repository<Order>, private prisma: PrismaClient) {}

  plain(a: number) {
    const b = a + 1;
    return b;
  }

  branchy(items: Order[]) {
    if (items.length === 0) {
      return;
    }
    for (const item of items) {
      console.log(item);
    }
  }

  busy(x: number, items: number[]) {
    const y = x > 0 ? 1 : 2;
    if (x > 1 && y < 2 || x === 3) {}
    switch (x) {
      case 1:
        break;
      case 2:
        break;
      default:
        break;
    }
    try {
      JSON.parse('{}');
    } catch (e) {}
    items.forEach(i => { if (i) {} });
    do { x--; } while (x > 0);
  }

  async nPlusOne(ids: string[]) {
    const out = [];
    for (const id of ids) {
      out.push(await this.repo.findOne({ where: { id } }));
    }
    return out;
  }

  async chained(ids: string[]) {
    let i = 0;
    while (i < ids.length) {
      await this.repo
        .createQueryBuilder('o')
        .where('o.id = :id', { id: ids[i] })
        .getMany();
      i++;
    }
  }

  async prismaLoop(ids: string[]) {
    for (let i = 0; i < ids.length; i++) {
      await this.prisma.order.findUnique({ where: { id: ids[i] } });
    }
  }

  async writesOnly(orders: Order[]) {
    const first = await this.repo.findOne({});
    for (const o of orders) {
      await this.repo.save(o);
    }
    return first;
  }
}
`

func method(t *testing.T, name string) *extractor.Method {
	t.Helper()
	ext, err := extractor.NewExtractor("typescript")
	require.NoError(t, err)
	sf, err := ext.ExtractFromSource(context.Background(), "orders.service.ts", []byte(serviceSource))
	require.NoError(t, err)
	cls, ok := sf.Class("OrdersService")
	require.True(t, ok)
	m, ok := cls.Method(name)
	require.True(t, ok, name)
	return m
}

func TestCyclomaticComplexity(t *testing.T) {
	assert.Equal(t, 1, CyclomaticComplexity(method(t, "plain")))
	assert.Equal(t, 3, CyclomaticComplexity(method(t, "branchy")))
	// ternary + if + && + || + 2 cases + catch + closure if + do
	assert.Equal(t, 10, CyclomaticComplexity(method(t, "busy")))
}

func TestDetectLoopBoundRemoteCalls(t *testing.T) {
	t.Run("Awaited findOne in for..of", func(t *testing.T) {
		f := DetectLoopBoundRemoteCalls(method(t, "nPlusOne"))
		assert.True(t, f.Suspect)
		assert.Equal(t, "this.repo.findOne", f.Sample)
	})

	t.Run("Query builder chain in while", func(t *testing.T) {
		f := DetectLoopBoundRemoteCalls(method(t, "chained"))
		assert.True(t, f.Suspect)
		assert.Contains(t, f.Sample, "getMany")
	})

	t.Run("Prisma client in for", func(t *testing.T) {
		f := DetectLoopBoundRemoteCalls(method(t, "prismaLoop"))
		assert.True(t, f.Suspect)
		assert.Equal(t, "this.prisma.order.findUnique", f.Sample)
	})

	t.Run("Fetch outside loop and write inside", func(t *testing.T) {
		f := DetectLoopBoundRemoteCalls(method(t, "writesOnly"))
		assert.False(t, f.Suspect)
		assert.Empty(t, f.Sample)
	})

	t.Run("No loops", func(t *testing.T) {
		assert.False(t, DetectLoopBoundRemoteCalls(method(t, "plain")).Suspect)
	})
}

func TestIsOrmFetchName(t *testing.T) {
	for _, name := range []string{"findOne", "getMany", "rawQuery", "countBy", "findUnique", "FindAll"} {
		assert.True(t, IsOrmFetchName(name), name)
	}
	for _, name := range []string{"save", "update", "delete", "push", ""} {
		assert.False(t, IsOrmFetchName(name), name)
	}
}

func TestTerminalPropertyName(t *testing.T) {
	assert.Equal(t, "getMany", TerminalPropertyName("this.repo.createQueryBuilder('u').leftJoin('u.x', 'x').getMany()"))
	assert.Equal(t, "getOne", TerminalPropertyName("qb.getOne( )"))
	assert.Equal(t, "", TerminalPropertyName("this.repo.findOne({ id })"))
	assert.Equal(t, "", TerminalPropertyName("fetch()"))
}
