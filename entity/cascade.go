package entity

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/stark-toolkit/dyndb"
	"github.com/raywall/stark-toolkit/schema"
)

// RenameCascader propaga a troca da PK de uma entidade para os registros
// que a referenciam. Retorna a quantidade de registros atualizados.
type RenameCascader interface {
	CascadeRename(ctx context.Context, oldPK, newPK string) (int, error)
}

// ReferenceCascade atualiza um campo da entidade filha que guarda a PK da
// entidade pai (ex: STARK_User.Role -> STARK_User_Roles.Role_Name).
// Os registros reescritos saem do cache de Detail do serviço filho.
type ReferenceCascade struct {
	table   *dyndb.Table
	child   *schema.Entity
	field   schema.Field
	service *Service
}

func NewReferenceCascade(child *Service, fieldName string) (*ReferenceCascade, error) {
	f, ok := child.entity.Field(fieldName)
	if !ok {
		return nil, fmt.Errorf("entity: cascade field %s not declared in %s", fieldName, child.entity.Name)
	}
	return &ReferenceCascade{table: child.deps.Table, child: child.entity, field: f, service: child}, nil
}

func (c *ReferenceCascade) CascadeRename(ctx context.Context, oldPK, newPK string) (int, error) {
	if oldPK == "" || oldPK == newPK {
		return 0, nil
	}

	cfg := c.table.Config()
	attr := c.field.Attr()

	var (
		puts    []dyndb.Item
		deletes []dyndb.Key
		stale   []dyndb.Key
		cursor  dyndb.Cursor
	)
	for {
		page, err := c.table.ListView(c.child.Partition).FilterEqual(attr, oldPK).StartFrom(cursor).Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("cascade %s.%s: %w", c.child.Name, c.field.Name, err)
		}
		for _, item := range page.Items {
			updated := make(dyndb.Item, len(item))
			for k, v := range item {
				updated[k] = v
			}
			updated[attr] = &types.AttributeValueMemberS{Value: newPK}
			if c.sortsBy(c.field.Name) {
				updated[cfg.ListViewSortKey] = &types.AttributeValueMemberS{Value: c.listViewValue(updated)}
			}
			puts = append(puts, updated)

			key := dyndb.Key{PK: attrText(item[cfg.HashKey]), SK: attrText(item[cfg.SortKey])}
			stale = append(stale, key)
			// A referência é a própria chave do filho: a chave antiga sai
			if attr == cfg.HashKey {
				deletes = append(deletes, key)
				stale = append(stale, dyndb.Key{PK: newPK, SK: key.SK})
			}
		}
		if !page.HasMore() {
			break
		}
		cursor = page.Next
	}

	if len(puts) == 0 {
		return 0, nil
	}
	err := c.table.BatchWrite(ctx, puts, deletes)
	// invalida mesmo em falha parcial
	c.service.invalidate(ctx, stale...)
	if err != nil {
		return 0, fmt.Errorf("cascade %s.%s: %w", c.child.Name, c.field.Name, err)
	}
	return len(puts), nil
}

func (c *ReferenceCascade) sortsBy(name string) bool {
	for _, sf := range c.child.SortFields {
		if sf == name {
			return true
		}
	}
	return false
}

func (c *ReferenceCascade) listViewValue(item dyndb.Item) string {
	values := make([]string, 0, len(c.child.SortFields))
	for _, name := range c.child.SortFields {
		f, ok := c.child.Field(name)
		if !ok {
			values = append(values, "")
			continue
		}
		values = append(values, attrText(item[f.Attr()]))
	}
	return strings.Join(values, "|")
}

func attrText(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}
