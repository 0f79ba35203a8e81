package vm

import (
	"github.com/TheBitDrifter/bark"
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
)

// World-access and effect opcodes take their operands off the stack (the
// compiler emits OpConst for the component/field keyword literals, or a
// variable load, ahead of the access op) rather than from the instruction
// operand, so the same bytecode shape works whether the component name is
// a literal or a bound variable.

func (m *VM) getComponent(f *frame, ctx *Context) error {
	component, err := m.pop(OpGetComponent)
	if err != nil {
		return err
	}
	entity, err := m.pop(OpGetComponent)
	if err != nil {
		return err
	}
	if entity.Kind() != value.KindEntity {
		return bark.AddTrace(TypeError{Op: OpGetComponent, Expected: "entity", Got: entity.Kind()})
	}
	m.push(ctx.World.Get(entity.Entity(), component.Symbol()))
	return nil
}

func (m *VM) getField(f *frame, ctx *Context) error {
	field, err := m.pop(OpGetField)
	if err != nil {
		return err
	}
	component, err := m.pop(OpGetField)
	if err != nil {
		return err
	}
	entity, err := m.pop(OpGetField)
	if err != nil {
		return err
	}
	if entity.Kind() != value.KindEntity {
		return bark.AddTrace(TypeError{Op: OpGetField, Expected: "entity", Got: entity.Kind()})
	}
	m.push(ctx.World.GetField(entity.Entity(), component.Symbol(), field.Symbol()))
	return nil
}

func (m *VM) effect(instr Instr, f *frame, ctx *Context) error {
	switch instr.Op {
	case OpSpawn:
		initial, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		mp := initial.Map()
		values := map[value.Symbol]value.Value{}
		if mp != nil {
			mp.Each(func(k, v value.Value) bool {
				values[k.Symbol()] = v
				return true
			})
		}
		result, err := ctx.applyEffect(EffectIntent{Kind: store.EffectSpawn, Values: values})
		if err != nil {
			return err
		}
		m.push(result)
		return nil

	case OpDestroy:
		entity, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		if _, err := ctx.applyEffect(EffectIntent{Kind: store.EffectDestroy, Entity: entity.Entity()}); err != nil {
			return err
		}
		m.push(value.Nil)
		return nil

	case OpSet:
		val, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		component, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		entity, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		result, err := ctx.applyEffect(EffectIntent{Kind: store.EffectSet, Entity: entity.Entity(), Component: component.Symbol(), Value: val})
		if err != nil {
			return err
		}
		m.push(result)
		return nil

	case OpSetField:
		val, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		field, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		component, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		entity, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		result, err := ctx.applyEffect(EffectIntent{Kind: store.EffectSetField, Entity: entity.Entity(), Component: component.Symbol(), Field: field.Symbol(), Value: val})
		if err != nil {
			return err
		}
		m.push(result)
		return nil

	case OpLink:
		target, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		source, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		rel, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		result, err := ctx.applyEffect(EffectIntent{Kind: store.EffectLink, Rel: rel.Symbol(), Entity: source.Entity(), Target: target.Entity()})
		if err != nil {
			return err
		}
		m.push(result)
		return nil

	case OpUnlink:
		target, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		source, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		rel, err := m.pop(instr.Op)
		if err != nil {
			return err
		}
		if _, err := ctx.applyEffect(EffectIntent{Kind: store.EffectUnlink, Rel: rel.Symbol(), Entity: source.Entity(), Target: target.Entity()}); err != nil {
			return err
		}
		m.push(value.Nil)
		return nil
	}
	return nil
}
